package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	now := time.Date(2025, time.December, 1, 10, 0, 0, 0, time.UTC)
	prompt := SystemPrompt(now)

	assert.Contains(t, prompt, "Today is 2025-12-01 (December 2025).")
	assert.Contains(t, prompt, "check_availability")
	assert.Contains(t, prompt, "create_booking")
	assert.Contains(t, prompt, "get_guest_info")
	assert.Contains(t, prompt, "get_current_date")
	assert.Contains(t, prompt, `"RoomID:XXX PropertyID:YYY"`)
}
