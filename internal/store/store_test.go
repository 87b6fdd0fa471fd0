package store

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeRow struct {
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	return r.err
}

// Every scan helper maps pgx.ErrNoRows onto ErrNotFound so callers can branch
// with errors.Is instead of importing pgx.
func TestScanHelpersMapNoRows(t *testing.T) {
	row := fakeRow{err: pgx.ErrNoRows}

	if _, err := scanCampaign(row); !errors.Is(err, ErrNotFound) {
		t.Errorf("scanCampaign: expected ErrNotFound, got %v", err)
	}
	if _, err := scanConversation(row); !errors.Is(err, ErrNotFound) {
		t.Errorf("scanConversation: expected ErrNotFound, got %v", err)
	}
	if _, err := scanMessage(row); !errors.Is(err, ErrNotFound) {
		t.Errorf("scanMessage: expected ErrNotFound, got %v", err)
	}
	if _, err := scanPrompt(row); !errors.Is(err, ErrNotFound) {
		t.Errorf("scanPrompt: expected ErrNotFound, got %v", err)
	}
}

func TestScanHelpersWrapOtherErrors(t *testing.T) {
	cause := errors.New("connection reset")
	row := fakeRow{err: cause}

	if _, err := scanCampaign(row); !errors.Is(err, cause) {
		t.Errorf("scanCampaign: expected wrapped cause, got %v", err)
	}
	if _, err := scanConversation(row); errors.Is(err, ErrNotFound) {
		t.Error("scanConversation: arbitrary errors must not map to ErrNotFound")
	}
}
