package purchasing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/erp/poimport/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	t.Run("format error", func(t *testing.T) {
		err := fmt.Errorf("row 3: %w", &FormatError{Field: "Quantity", Value: "abc", Err: errors.New("not a number")})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Equal(t, ErrCodeInvalidFormat, ErrorCode(err))
		assert.Contains(t, err.Error(), `invalid Quantity "abc": not a number`)
	})

	t.Run("not found names the key", func(t *testing.T) {
		err := &NotFoundError{Entity: "item", Key: "Steel Bolt M8"}
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, "item not found: Steel Bolt M8", err.Error())
		assert.Equal(t, ErrCodeNotFound, ErrorCode(err))
	})

	t.Run("persistence error unwraps", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := &PersistenceError{Op: "insert lines", Err: cause}
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "insert lines failed: connection reset", err.Error())
		assert.Equal(t, "write header failed", (&PersistenceError{Op: "write header"}).Error())
	})

	t.Run("conflict", func(t *testing.T) {
		err := &ConflictError{PONumber: "PO-1"}
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.Equal(t, ErrCodeConflict, ErrorCode(err))
	})

	t.Run("header mismatch lists fields", func(t *testing.T) {
		err := &HeaderMismatchError{PONumber: "PO-1", Mismatches: []FieldMismatch{
			{Field: "Vendor", First: "Acme", Other: "Beta", RowNum: 4},
		}}
		assert.Contains(t, err.Error(), `Vendor "Acme" vs "Beta" (row 4)`)
		assert.Equal(t, ErrCodeHeaderMismatch, ErrorCode(err))
	})

	t.Run("domain error code", func(t *testing.T) {
		assert.Equal(t, "NOT_FOUND", ErrorCode(shared.ErrNotFound))
		assert.Equal(t, "", ErrorCode(errors.New("plain")))
	})
}
