package httpapi

import (
	"net/http"
	"testing"

	"github.com/MrEthical07/safeher/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noteEnvelope struct {
	Message string      `json:"message"`
	Note    report.Note `json:"note"`
	Report  report.View `json:"report"`
}

func TestModerationFlow(t *testing.T) {
	env := newAPIEnv(t, nil, nil)
	alice := env.register(t, "alice@example.com")
	admin := env.admin(t)
	mod := env.moderator(t, admin)
	r := env.createReport(t, alice)
	notePath := "/api/moderator/reports/" + itoa(r.ID) + "/note"

	queue := decode[[]report.View](t, env.call(t, http.MethodGet, "/api/moderator/reports", mod, nil))
	require.Len(t, queue, 1)
	assert.Equal(t, r.ID, queue[0].ID)

	rec := env.call(t, http.MethodPost, notePath, mod, map[string]string{"note": "  Looking into it  ", "status": "in_review"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[noteEnvelope](t, rec)
	assert.Equal(t, "Note added successfully", added.Message)
	assert.Equal(t, "Looking into it", added.Note.Note)
	require.NotNil(t, added.Note.Moderator)
	assert.Equal(t, "mod@example.com", added.Note.Moderator.Email)
	assert.Equal(t, report.StatusInReview, added.Report.Status)
	require.Len(t, added.Report.History, 1)
	assert.Equal(t, report.StatusPending, added.Report.History[0].From)

	rec = env.call(t, http.MethodPost, notePath, mod, map[string]string{"note": "Jump", "status": "pending_forever"})
	requireError(t, rec, http.StatusBadRequest, CodeInvalidInput)

	rec = env.call(t, http.MethodPost, notePath, mod, map[string]string{"note": "   "})
	body := requireError(t, rec, http.StatusBadRequest, CodeInvalidInput)
	assert.Equal(t, "Note is required", body.Error)

	rec = env.call(t, http.MethodPost, notePath, mod, map[string]string{"note": "Done", "status": "resolved"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Resolved reports leave the default queue but match an explicit filter.
	queue = decode[[]report.View](t, env.call(t, http.MethodGet, "/api/moderator/reports", mod, nil))
	assert.Empty(t, queue)
	queue = decode[[]report.View](t, env.call(t, http.MethodGet, "/api/moderator/reports?status=resolved", mod, nil))
	require.Len(t, queue, 1)
	assert.Len(t, queue[0].Notes, 2)

	rec = env.call(t, http.MethodPost, notePath, mod, map[string]string{"note": "Reopen?", "status": "pending"})
	requireError(t, rec, http.StatusConflict, CodeConflict)

	reviewed := decode[[]report.View](t, env.call(t, http.MethodGet, "/api/moderator/reports/reviewed", mod, nil))
	require.Len(t, reviewed, 1)
	assert.Equal(t, r.ID, reviewed[0].ID)

	detail := decode[report.View](t, env.call(t, http.MethodGet, "/api/moderator/reports/"+itoa(r.ID), mod, nil))
	assert.Len(t, detail.Notes, 2)
	assert.Len(t, detail.History, 2)
}

func TestModeratorRoutesRequireRole(t *testing.T) {
	env := newAPIEnv(t, nil, nil)
	alice := env.register(t, "alice@example.com")
	r := env.createReport(t, alice)

	rec := env.call(t, http.MethodGet, "/api/moderator/reports", alice, nil)
	body := requireError(t, rec, http.StatusForbidden, CodeForbidden)
	assert.Equal(t, "Access denied", body.Error)

	rec = env.call(t, http.MethodPost, "/api/moderator/reports/"+itoa(r.ID)+"/note", alice, map[string]string{"note": "x"})
	requireError(t, rec, http.StatusForbidden, CodeForbidden)
}

func TestQueueRejectsUnknownStatus(t *testing.T) {
	env := newAPIEnv(t, nil, nil)
	admin := env.admin(t)

	rec := env.call(t, http.MethodGet, "/api/moderator/reports?status=bogus", admin, nil)
	body := requireError(t, rec, http.StatusBadRequest, CodeInvalidInput)
	assert.Equal(t, "Invalid status filter", body.Error)
}

func TestAddNoteUnknownReport(t *testing.T) {
	env := newAPIEnv(t, nil, nil)
	admin := env.admin(t)

	rec := env.call(t, http.MethodPost, "/api/moderator/reports/404/note", admin, map[string]string{"note": "x"})
	requireError(t, rec, http.StatusNotFound, CodeNotFound)
}
