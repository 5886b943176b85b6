package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/securekit/pkg/otp"
)

// DevChannel implements otp.Channel for local development. Codes are written
// as JSON files to a directory instead of being sent anywhere, keeping them
// out of the log sink while staying easy to inspect.
type DevChannel struct {
	dir string
}

// NewDevChannel creates a file-backed channel. The directory is created on
// first delivery if missing.
func NewDevChannel(dir string) *DevChannel {
	return &DevChannel{dir: dir}
}

type devMessage struct {
	Timestamp   string `json:"timestamp"`
	Destination string `json:"destination"`
	Purpose     string `json:"purpose"`
	Code        string `json:"code"`
}

func (d *DevChannel) SendCode(ctx context.Context, destination, code string, purpose otp.Type) (otp.Receipt, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return otp.Receipt{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	now := time.Now()
	msg := devMessage{
		Timestamp:   now.Format(time.RFC3339),
		Destination: destination,
		Purpose:     string(purpose),
		Code:        code,
	}
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return otp.Receipt{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	id := uuid.NewString()
	name := fmt.Sprintf("%s_%s.json", now.Format("2006_01_02_150405"), id[:8])
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o600); err != nil {
		return otp.Receipt{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	return otp.Receipt{Delivered: true, MessageID: id}, nil
}
