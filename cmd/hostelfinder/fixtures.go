package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"hostelfinder/internal/app/uow"
	domainhostels "hostelfinder/internal/domain/hostels"
)

type hostelFixture struct {
	ID     string              `json:"id"`
	Draft  domainhostels.Draft `json:"draft"`
	Images []string            `json:"images"`
}

// loadHostelFixtures seeds hostels from a JSON file. Invalid entries are
// logged and skipped; existing ids are overwritten. Later entries are created
// later, so the catalog lists the file bottom-up.
func loadHostelFixtures(ctx context.Context, factory uow.UoWFactory, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("hostel fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("hostel fixtures file empty", "path", path)
		return nil
	}

	var fixtures []hostelFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for i, fx := range fixtures {
		attrs, err := fx.Draft.Attributes()
		if err != nil {
			logger.Error("fixture invalid", "hostel_id", fx.ID, "error", err)
			continue
		}
		hostel, err := domainhostels.NewHostel(domainhostels.CreateParams{
			ID:         domainhostels.HostelID(fx.ID),
			Attributes: attrs,
			Images:     fx.Images,
			Now:        now.Add(time.Duration(i) * time.Millisecond),
		})
		if err != nil {
			logger.Error("fixture invalid", "hostel_id", fx.ID, "error", err)
			continue
		}
		if err := saveFixture(ctx, factory, hostel); err != nil {
			logger.Error("cannot store fixture hostel", "hostel_id", fx.ID, "error", err)
			continue
		}
		logger.Info("hostel fixture imported", "hostel_id", hostel.ID)
	}
	return nil
}

func saveFixture(ctx context.Context, factory uow.UoWFactory, hostel *domainhostels.Hostel) error {
	unit, execCtx, release, err := uow.Begin(ctx, factory, uow.TxOptions{})
	if err != nil {
		return err
	}
	if release != nil {
		defer release()
	}
	if err := unit.Hostels().Save(execCtx, hostel); err != nil {
		return err
	}
	if err := unit.RoomTypes().ReplaceForHostel(execCtx, hostel.ID, hostel.RoomTypes); err != nil {
		return err
	}
	return unit.Commit(execCtx)
}
