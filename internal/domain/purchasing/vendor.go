package purchasing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erp/poimport/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultVendorCodePrefix is prepended to the numeric sequence of generated vendor codes
const DefaultVendorCodePrefix = "SUP-"

// Vendor is a supplier of purchased items. Vendors are matched by name and
// created on first sight during an import; they are never updated by it.
type Vendor struct {
	shared.BaseEntity
	Code     string
	Name     string
	IsActive bool
}

// NewVendor creates a new active vendor with a generated ID
func NewVendor(code, name string) (*Vendor, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Vendor code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_CODE", "Vendor code cannot exceed 50 characters")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Vendor name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Vendor name cannot exceed 200 characters")
	}

	return &Vendor{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       name,
		IsActive:   true,
	}, nil
}

// FormatVendorCode renders a sequence number as a vendor code, e.g. SUP-0001
func FormatVendorCode(prefix string, seq int64) string {
	if prefix == "" {
		prefix = DefaultVendorCodePrefix
	}
	return fmt.Sprintf("%s%04d", prefix, seq)
}

// ParseVendorCode extracts the sequence number from a generated vendor code.
// Codes that do not carry the prefix followed by digits report ok=false.
func ParseVendorCode(prefix, code string) (seq int64, ok bool) {
	if prefix == "" {
		prefix = DefaultVendorCodePrefix
	}
	rest, found := strings.CutPrefix(code, prefix)
	if !found || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// Item is a catalog item referenced by purchase order lines.
// Items must already exist; the importer only looks them up.
type Item struct {
	ID          uuid.UUID
	Code        string
	Description string
	BaseUOM     string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
