package api

import (
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Timestamp carries a google.protobuf.Timestamp and uses its canonical JSON
// form ("2026-01-02T15:04:05Z") on the wire.
type Timestamp struct {
	*timestamppb.Timestamp
}

// Unix converts seconds since the epoch into a wire timestamp.
// Zero maps to nil.
func Unix(sec int64) *Timestamp {
	if sec == 0 {
		return nil
	}
	return &Timestamp{timestamppb.New(time.Unix(sec, 0))}
}

// UnixSeconds returns the timestamp in seconds, or 0 when unset.
func (t *Timestamp) UnixSeconds() int64 {
	if t == nil || t.Timestamp == nil {
		return 0
	}
	return t.Timestamp.GetSeconds()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return protojson.Marshal(t.Timestamp)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	ts := &timestamppb.Timestamp{}
	if err := protojson.Unmarshal(data, ts); err != nil {
		return err
	}
	if err := ts.CheckValid(); err != nil {
		return err
	}
	t.Timestamp = ts
	return nil
}
