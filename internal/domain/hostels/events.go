package hostels

import "time"

type HostelCreatedEvent struct {
	HostelID HostelID  `json:"hostel_id"`
	Name     string    `json:"name"`
	At       time.Time `json:"at"`
}

func (e HostelCreatedEvent) EventName() string     { return "hostel.created" }
func (e HostelCreatedEvent) AggregateID() string   { return string(e.HostelID) }
func (e HostelCreatedEvent) OccurredAt() time.Time { return e.At }

type HostelUpdatedEvent struct {
	HostelID HostelID  `json:"hostel_id"`
	At       time.Time `json:"at"`
}

func (e HostelUpdatedEvent) EventName() string     { return "hostel.updated" }
func (e HostelUpdatedEvent) AggregateID() string   { return string(e.HostelID) }
func (e HostelUpdatedEvent) OccurredAt() time.Time { return e.At }

type HostelDeletedEvent struct {
	HostelID HostelID  `json:"hostel_id"`
	At       time.Time `json:"at"`
}

func (e HostelDeletedEvent) EventName() string     { return "hostel.deleted" }
func (e HostelDeletedEvent) AggregateID() string   { return string(e.HostelID) }
func (e HostelDeletedEvent) OccurredAt() time.Time { return e.At }
