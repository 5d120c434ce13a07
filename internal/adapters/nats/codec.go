package natsadapter

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/samirrijal/landplot/internal/core/domain"
)

// Land events travel as a serialized google.protobuf.Struct so consumers in
// any language can decode them without a generated schema.

// EncodeLandEvent serializes e for the wire.
func EncodeLandEvent(e *domain.LandEvent) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"type":          string(e.Type),
		"land_id":       e.LandID,
		"polygon_count": e.PolygonCount,
		"time":          e.Time.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode land event: %w", err)
	}
	return proto.Marshal(s)
}

// DecodeLandEvent parses a wire message produced by EncodeLandEvent.
func DecodeLandEvent(data []byte) (*domain.LandEvent, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode land event: %w", err)
	}
	f := s.GetFields()
	e := &domain.LandEvent{
		Type:         domain.LandEventType(f["type"].GetStringValue()),
		LandID:       int64(f["land_id"].GetNumberValue()),
		PolygonCount: int(f["polygon_count"].GetNumberValue()),
	}
	if e.Type == "" || e.LandID == 0 {
		return nil, fmt.Errorf("decode land event: missing type or land_id")
	}
	if ts := f["time"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("decode land event time: %w", err)
		}
		e.Time = t
	}
	return e, nil
}

// LandEventJSON converts a wire message to JSON for browser clients.
func LandEventJSON(data []byte) ([]byte, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return protojson.Marshal(&s)
}

// LandSubject is the subject events for one land record are published on.
func LandSubject(landID int64, typ domain.LandEventType) string {
	return fmt.Sprintf("%s.%d.%s", subjectRoot, landID, typ)
}

// LandWildcard matches every event of one land record, or of all records
// when landID is 0.
func LandWildcard(landID int64) string {
	if landID == 0 {
		return subjectRoot + ".>"
	}
	return fmt.Sprintf("%s.%d.>", subjectRoot, landID)
}
