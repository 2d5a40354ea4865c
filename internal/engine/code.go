package engine

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/examdesk/exam-scheduler-api/internal/models"
)

const (
	codeShuffleAttempts = 20
	codeSuffixAttempts  = 20
	codePrefixLen       = 4
	codeSuffixLen       = 6
)

// GenerateCode derives a shareable session code from a base reference string.
// Non-alphanumeric characters are stripped and the rest uppercased, then up
// to 20 random permutations are tried against the uniqueness oracle. On
// exhaustion it falls back to the deterministic prefix with a random suffix,
// and finally to a fully random code of the same XXXX-YYYYYY shape.
func GenerateCode(baseReference string, isUnique func(code string) bool) string {
	clean := sanitizeReference(baseReference)

	if len(clean) > codePrefixLen {
		chars := []byte(clean)
		for i := 0; i < codeShuffleAttempts; i++ {
			rand.Shuffle(len(chars), func(a, b int) {
				chars[a], chars[b] = chars[b], chars[a]
			})
			code := formatCode(string(chars))
			if isUnique(code) {
				return code
			}
		}
	}

	prefix := clean
	if len(prefix) > codePrefixLen {
		prefix = prefix[:codePrefixLen]
	}
	for len(prefix) < codePrefixLen {
		prefix += randomCodeChars(1)
	}
	for i := 0; i < codeSuffixAttempts; i++ {
		code := prefix + "-" + randomCodeChars(codeSuffixLen)
		if isUnique(code) {
			return code
		}
	}

	// Last resort: both halves random. The suffix space is large enough that
	// a correct oracle accepts in O(1) expected attempts.
	for {
		code := randomCodeChars(codePrefixLen) + "-" + randomCodeChars(codeSuffixLen)
		if isUnique(code) {
			return code
		}
	}
}

func sanitizeReference(ref string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(ref) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func formatCode(chars string) string {
	if len(chars) <= codePrefixLen {
		return chars
	}
	return chars[:codePrefixLen] + "-" + chars[codePrefixLen:]
}

func randomCodeChars(n int) string {
	// uuid as entropy source keeps this dependency-free of custom seeding.
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	id := uuid.New()
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = alphabet[int(id[i%len(id)])%len(alphabet)]
	}
	return string(out)
}

// GenerateScheduleCode assigns a shared code to both sessions of a date.
// Idempotent: a date that already carries a code keeps it.
func (e *Engine) GenerateScheduleCode(ctx context.Context, date time.Time, baseReference string) (string, error) {
	date = models.DateOnly(date)

	var code string
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []models.ScheduleEntry
		if err := tx.Where("date = ?", date).Order("id ASC").Find(&entries).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("%w: no sessions on %s", ErrScheduleNotFound, date.Format("2006-01-02"))
		}
		for _, entry := range entries {
			if entry.Code != nil && *entry.Code != "" {
				code = *entry.Code
				return nil
			}
		}

		code = GenerateCode(baseReference, func(candidate string) bool {
			var count int64
			if err := tx.Model(&models.ScheduleEntry{}).Where("code = ?", candidate).Count(&count).Error; err != nil {
				// Treat an oracle failure as a collision so generation moves on.
				return false
			}
			return count == 0
		})

		return tx.Model(&models.ScheduleEntry{}).
			Where("date = ?", date).
			Update("code", code).Error
	})
	if err != nil {
		return "", err
	}
	return code, nil
}
