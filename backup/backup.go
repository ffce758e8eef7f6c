/*
Package backup converts between backup files and catalogs.

PURPOSE:
  A backup is the whole catalog in one JSON file the user can download and
  restore later, possibly into a newer version. Restoring replaces every
  collection at once.

JSON SCHEMA:
  {
    "version": "1.4",
    "createdAt": "2024-07-20T10:00:00Z",
    "skus": [...],
    "ingredients": [...],
    "suppliers": [...],
    "expenseCategories": ["Salarios", ...],
    "sku_categories": [...],
    "payrolls": [...]          <- any other key is carried through as-is
  }

  Every key except version/createdAt is a storage collection. The one name
  that differs from storage is expenseCategories (stored as
  expense_categories); both spellings are accepted on import.

VALIDATION:
  - the document must be a JSON object
  - version must be a non-empty string
  - skus and suppliers must be arrays
  - every modeled collection must decode (unlike a storage load, a backup
    with a corrupt collection is rejected rather than partially restored)

  The decoded catalog is healed like any storage load.

SEE ALSO:
  - bakery/persist.go: Collection keys and LoadCatalog
  - api/handlers.go: /api/backup endpoints
*/
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/warp/bakery-engine/bakery"
	"github.com/warp/bakery-engine/generic"
)

// Version is written into every exported file.
const Version = "1.4"

const (
	fieldVersion   = "version"
	fieldCreatedAt = "createdAt"

	// Backup spelling of bakery.KeyExpenseCategories.
	aliasExpenseCategories = "expenseCategories"
)

// Header is the metadata of a parsed backup.
type Header struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	Keys      []string  `json:"keys"`
}

// =============================================================================
// EXPORT
// =============================================================================

// Export encodes c as an indented backup file.
func Export(c *bakery.Catalog, now time.Time) ([]byte, error) {
	collections, err := c.Collections()
	if err != nil {
		return nil, err
	}

	doc := make(map[string]json.RawMessage, len(collections)+2)
	for key, data := range collections {
		if key == bakery.KeyExpenseCategories {
			key = aliasExpenseCategories
		}
		doc[key] = data
	}
	doc[fieldVersion], _ = json.Marshal(Version)
	doc[fieldCreatedAt], _ = json.Marshal(now.UTC().Format(time.RFC3339))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the suggested download name for a backup taken at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("cvb_erp_backup_%s.json", now.UTC().Format(generic.DateLayout))
}

// =============================================================================
// IMPORT
// =============================================================================

// Parse validates a backup and splits it into its header and storage
// collections.
func Parse(data []byte) (*Header, map[string][]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return nil, nil, fmt.Errorf("%w: not a JSON object", generic.ErrInvalidBackup)
	}

	var header Header
	if err := json.Unmarshal(doc[fieldVersion], &header.Version); err != nil || strings.TrimSpace(header.Version) == "" {
		return nil, nil, fmt.Errorf("%w: missing version", generic.ErrInvalidBackup)
	}
	for _, key := range []string{bakery.KeySKUs, bakery.KeySuppliers} {
		if !isArray(doc[key]) {
			return nil, nil, fmt.Errorf("%w: %s must be an array", generic.ErrInvalidBackup, key)
		}
	}
	var createdAt string
	if json.Unmarshal(doc[fieldCreatedAt], &createdAt) == nil {
		header.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	}

	collections := make(map[string][]byte, len(doc))
	for key, raw := range doc {
		switch key {
		case fieldVersion, fieldCreatedAt:
			continue
		case aliasExpenseCategories:
			key = bakery.KeyExpenseCategories
		case bakery.KeyExpenseCategories:
			if _, both := doc[aliasExpenseCategories]; both {
				continue
			}
		}
		collections[key] = raw
		header.Keys = append(header.Keys, key)
	}
	sort.Strings(header.Keys)
	return &header, collections, nil
}

// Import parses and decodes a backup into a healed catalog.
func Import(data []byte, today generic.Date) (*bakery.Catalog, *Header, error) {
	header, collections, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	c, keyErrs := bakery.LoadCatalog(collections, today)
	if len(keyErrs) > 0 {
		msgs := make([]string, len(keyErrs))
		for i, e := range keyErrs {
			msgs[i] = e.Error()
		}
		return nil, nil, fmt.Errorf("%w: %s", generic.ErrInvalidBackup, strings.Join(msgs, "; "))
	}
	return c, header, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
