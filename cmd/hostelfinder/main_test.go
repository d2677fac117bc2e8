package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"hostelfinder/internal/infra/obs"
)

func TestApplicationClose_RunsClosersInReverseDespiteFailures(t *testing.T) {
	var order []string
	closer := func(name string, err error) func(context.Context) error {
		return func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			require.True(t, hasDeadline)
			order = append(order, name)
			return err
		}
	}
	app := &application{closers: []func(context.Context) error{
		closer("mongo", nil),
		closer("redis", errors.New("redis: connection reset")),
		closer("kafka", nil),
	}}

	app.close(obs.Discard())

	require.Equal(t, []string{"kafka", "redis", "mongo"}, order)
}
