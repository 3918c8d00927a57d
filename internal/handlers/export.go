// export.go serves video transcripts, inline or as a download.
//
// Supported download formats:
//   - txt: Plain text transcript
//   - md: Markdown with metadata header
//   - srt: SubRip subtitle format, one cue per segment
//   - json: Segments plus metadata
//
// Go Pattern: Each export format is its own function. This makes it easy
// to add new formats later, just add a case to the switch and a new
// formatter function.
package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/middleware"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

var exportFormats = map[string]bool{"txt": true, "md": true, "srt": true, "json": true}

// VideoTranscript returns the transcript of a video. Without ?format it is
// returned in the usual envelope; with one it is sent as a file.
// GET /api/videos/:id/transcript?format=txt|md|srt|json
func (h *Handler) VideoTranscript(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	// Validate format before doing any work
	format := c.Query("format")
	if format != "" && !exportFormats[format] {
		h.fail(c, apperr.Field("format", "Supported formats: txt, md, srt, json"))
		return
	}

	v, err := h.Videos.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	t, err := h.Videos.Transcript(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	if format == "" {
		respond(c, http.StatusOK, "", t)
		return
	}

	filename := sanitizeFilename(v.Title)
	if filename == "" {
		filename = fmt.Sprintf("video-%d", v.ID)
	}
	filename += "-transcript"

	switch format {
	case "txt":
		exportTXT(c, t, filename)
	case "md":
		exportMarkdown(c, v, t, filename)
	case "srt":
		exportSRT(c, t, filename)
	case "json":
		exportJSON(c, v, t, filename)
	}
}

func attach(c *gin.Context, filename, ext, contentType string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, filename, ext))
	c.Data(http.StatusOK, contentType, body)
}

// exportTXT returns the transcript as plain text, one segment per line.
func exportTXT(c *gin.Context, t *models.Transcript, filename string) {
	lines := make([]string, len(t.Segments))
	for i, seg := range t.Segments {
		lines[i] = seg.Text
	}
	attach(c, filename, "txt", "text/plain; charset=utf-8", []byte(strings.Join(lines, "\n")+"\n"))
}

// exportMarkdown returns the transcript as Markdown with a metadata header.
func exportMarkdown(c *gin.Context, v *models.Video, t *models.Transcript, filename string) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", v.Title))
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Video | %d |\n", v.ID))
	sb.WriteString(fmt.Sprintf("| Duration | %s |\n", formatDuration(v.Duration)))
	sb.WriteString(fmt.Sprintf("| Words | %d |\n", len(strings.Fields(t.Text()))))
	sb.WriteString(fmt.Sprintf("| Language | %s |\n", t.Language))
	sb.WriteString("\n---\n\n")
	sb.WriteString("## Transcript\n\n")
	for _, seg := range t.Segments {
		sb.WriteString(fmt.Sprintf("**[%s]** %s\n\n", formatSRTTime(seg.Start)[:8], seg.Text))
	}

	attach(c, filename, "md", "text/markdown; charset=utf-8", []byte(sb.String()))
}

// exportSRT returns the transcript in SubRip subtitle format. Segments
// already carry their own timing, so each becomes one cue.
func exportSRT(c *gin.Context, t *models.Transcript, filename string) {
	var sb strings.Builder

	if len(t.Segments) == 0 {
		sb.WriteString("1\n00:00:00,000 --> 00:00:01,000\n(empty transcript)\n\n")
	}
	for i, seg := range t.Segments {
		// SRT format: index, timestamp range, text, blank line
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", formatSRTTime(seg.Start), formatSRTTime(seg.End)))
		sb.WriteString(seg.Text)
		sb.WriteString("\n\n")
	}

	attach(c, filename, "srt", "text/srt; charset=utf-8", []byte(sb.String()))
}

// exportJSON returns the segments plus video metadata.
func exportJSON(c *gin.Context, v *models.Video, t *models.Transcript, filename string) {
	words := len(strings.Fields(t.Text()))
	exportData := map[string]interface{}{
		"video_id":       v.ID,
		"title":          v.Title,
		"duration":       v.Duration,
		"duration_human": formatDuration(v.Duration),
		"language":       t.Language,
		"segments":       t.Segments,
		"text":           t.Text(),
		"word_count":     words,
		"reading_time":   fmt.Sprintf("%d min", int(math.Ceil(float64(words)/200.0))),
	}

	body, err := json.MarshalIndent(exportData, "", "  ")
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Response{Success: false, Message: "Failed to generate JSON export"})
		return
	}
	attach(c, filename, "json", "application/json; charset=utf-8", body)
}

// --- Helper Functions ---

// formatSRTTime converts seconds to SRT timestamp format: HH:MM:SS,mmm
func formatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	// Round to whole milliseconds first so 59.999 doesn't print as 59,998
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	s := (total / 1000) % 60
	m := (total / 60000) % 60
	h := total / 3600000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// formatDuration converts seconds to a human-readable duration string.
func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// sanitizeFilename removes characters that aren't safe for filenames.
// Go Pattern: Keep it simple. Replace unsafe characters with hyphens and
// trim the result; this only feeds the Content-Disposition header.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "",
	)
	name = replacer.Replace(name)

	// Collapse multiple hyphens/spaces
	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.TrimSpace(name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
