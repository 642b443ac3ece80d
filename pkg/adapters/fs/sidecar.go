package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/notefold/pkg/core"
)

// sidecar is the JSON document stored inside every folder directory.
// The folder's name and parent are derived from its location, never stored.
type sidecar struct {
	ID        string `json:"id"`
	Icon      string `json:"icon"`
	Color     string `json:"color"`
	CreatedAt string `json:"createdAt"`
}

func sidecarFromFolder(f core.Folder) sidecar {
	return sidecar{ID: f.ID, Icon: f.Icon, Color: f.Color, CreatedAt: f.CreatedAt}
}

// readSidecar loads the sidecar of dir. The second result is false when the
// file is missing, unreadable, malformed, or carries no ID.
func (r *Repository) readSidecar(dir string) (sidecar, bool) {
	data, err := os.ReadFile(filepath.Join(dir, r.config.SidecarName))
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("failed to read folder sidecar", "path", dir, "error", err)
		}
		return sidecar{}, false
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		r.logger.Warn("malformed folder sidecar", "path", dir, "error", err)
		return sidecar{}, false
	}

	s := sidecar{
		ID:        flexString(raw["id"]),
		Icon:      flexString(raw["icon"]),
		Color:     flexString(raw["color"]),
		CreatedAt: flexString(raw["createdAt"]),
	}
	return s, s.ID != ""
}

func (r *Repository) writeSidecar(dir string, s sidecar) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, r.config.SidecarName), data, 0644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	return nil
}

// flexString renders a decoded JSON value as text. Numbers keep their integer
// form (millisecond timestamps are common in older stores).
func flexString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
