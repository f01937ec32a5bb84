package importer

import (
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"

	"dealercrm/internal/charset"
	"dealercrm/internal/models"
)

// LoadUsers reads a sales rep roster with "id" and "name" header columns.
// The file may be UTF-8 or Shift-JIS.
func LoadUsers(r io.Reader) ([]models.User, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read user roster: %w", err)
	}

	var users []models.User
	decoder, err := csvutil.NewDecoder(stdcsv.NewReader(strings.NewReader(charset.Decode(data, charset.Auto))))
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}
	if err := decoder.Decode(&users); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode user roster: %w", err)
	}

	kept := users[:0]
	for _, u := range users {
		u.ID = strings.TrimSpace(u.ID)
		u.Name = strings.TrimSpace(u.Name)
		if u.Name != "" {
			kept = append(kept, u)
		}
	}
	return kept, nil
}
