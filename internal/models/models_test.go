package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionPercentage(t *testing.T) {
	tests := []struct {
		submitted, total int
		want             float64
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{3, 3, 100},
		{1, 8, 12.5},
	}

	for _, tt := range tests {
		got := CompletionPercentage(tt.submitted, tt.total)
		assert.InDelta(t, tt.want, got, 0.001, "CompletionPercentage(%d, %d)", tt.submitted, tt.total)
	}
}

func TestRequestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to RequestStatus
		want     bool
	}{
		{RequestStatusActive, RequestStatusPaused, true},
		{RequestStatusPaused, RequestStatusActive, true},
		{RequestStatusActive, RequestStatusCompleted, true},
		{RequestStatusPaused, RequestStatusCancelled, true},
		{RequestStatusActive, RequestStatusActive, true},
		{RequestStatusCompleted, RequestStatusActive, false},
		{RequestStatusCancelled, RequestStatusPaused, false},
		{RequestStatusCompleted, RequestStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestVideoIsPublished(t *testing.T) {
	now := time.Now()

	v := Video{Status: VideoStatusReady}
	assert.False(t, v.IsPublished(), "ready without published_at")

	v.PublishedAt = &now
	assert.True(t, v.IsPublished())

	v.Status = VideoStatusArchived
	assert.False(t, v.IsPublished(), "archived keeps published_at but is not published")
	assert.NotNil(t, v.PublishedAt)
}

func TestVideoMarshalJSON(t *testing.T) {
	now := time.Now()
	v := Video{ID: 7, Title: "Demo", Status: VideoStatusReady, PublishedAt: &now, Duration: 125, FileSize: 1536}

	b, err := json.Marshal(v)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, true, out["is_published"])
	assert.Equal(t, "Ready", out["status_display"])
	assert.Equal(t, "2:05", out["formatted_duration"])
	assert.Equal(t, "1.5 KB", out["formatted_file_size"])
	assert.Equal(t, "Demo", out["title"])
}

func TestContentRequestMarshalJSON(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	r := ContentRequest{Type: RequestTypeScreenRecording, Status: RequestStatusActive, Deadline: &past}

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "Screen Recording", out["type_display"])
	assert.Equal(t, "Active", out["status_display"])
	assert.Equal(t, true, out["is_overdue"])
}

func TestPaginate(t *testing.T) {
	p := Paginate[int](nil, 0, 0, 0)
	assert.Equal(t, []int{}, p.Data)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Equal(t, 1, p.LastPage)
	assert.Equal(t, DefaultPerPage, p.PerPage)

	p = Paginate([]int{1, 2}, 45, 2, 20)
	assert.Equal(t, 3, p.LastPage)
	assert.Equal(t, 45, p.Total)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", FormatDuration(0))
	assert.Equal(t, "1:01", FormatDuration(61))
	assert.Equal(t, "1:01:01", FormatDuration(3661))
}

func TestBrandingScan(t *testing.T) {
	var b Branding
	require.NoError(t, b.Scan([]byte(`{"logo_url":"https://x.com/l.png","primary_color":"#fff"}`)))
	assert.Equal(t, "https://x.com/l.png", b.LogoURL)
	assert.Equal(t, "#fff", b.PrimaryColor)

	var empty Branding
	require.NoError(t, empty.Scan(nil))
	assert.Equal(t, Branding{}, empty)
}
