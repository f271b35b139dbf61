package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/corray333/backend-labs/registration/internal/service/models/submission"
)

func TestPersonRegisteredPayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := newPersonRegistered(submission.Submission{
		ID:            "s-1",
		CI:            "1234567",
		TransaccionID: "T1",
		Transport:     "soap",
		Replays:       1,
		UpdatedAt:     at,
	})

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	_ = json.Unmarshal(data, &got)
	if got["submissionId"] != "s-1" || got["transaccionId"] != "T1" || got["replayed"] != true {
		t.Fatalf("unexpected payload %s", data)
	}
}
