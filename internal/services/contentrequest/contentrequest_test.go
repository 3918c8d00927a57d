package contentrequest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/database/memdb"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/notify"
)

// flakyNotifier fails for the addresses in fail and records the rest.
type flakyNotifier struct {
	mu   sync.Mutex
	fail map[string]bool
	sent []notify.Message
}

func (n *flakyNotifier) Send(_ context.Context, msg notify.Message) (*notify.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[msg.To] {
		return nil, errors.New("mailbox unavailable")
	}
	n.sent = append(n.sent, msg)
	return &notify.Receipt{To: msg.To, Kind: msg.Kind, SentAt: time.Now()}, nil
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (e *eventLog) NotifyEvent(_ context.Context, userID int64, event string, _ any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, fmt.Sprintf("%d:%s", userID, event))
}

type fixture struct {
	db       *memdb.DB
	notifier *flakyNotifier
	events   *eventLog
	svc      *Service
	creator  *models.User
	invitee  *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       memdb.New(),
		notifier: &flakyNotifier{fail: map[string]bool{}},
		events:   &eventLog{},
	}
	f.svc = New(f.db, notify.NewDispatcher(f.notifier, "http://app.test"), f.events)

	f.creator = &models.User{Name: "Creator", Email: "creator@example.com"}
	f.invitee = &models.User{Name: "Invitee", Email: "invitee@example.com"}
	require.NoError(t, f.db.CreateUser(context.Background(), f.creator))
	require.NoError(t, f.db.CreateUser(context.Background(), f.invitee))
	return f
}

func createInput(emails ...string) models.CreateContentRequestRequest {
	in := models.CreateContentRequestRequest{Title: "Demo", Description: "d", Type: models.RequestTypeVideo}
	for i, e := range emails {
		in.Invitees = append(in.Invitees, models.InviteeInput{Email: e, Name: fmt.Sprintf("Invitee %d", i)})
	}
	return in
}

func (f *fixture) request(t *testing.T, emails ...string) *models.ContentRequest {
	t.Helper()
	r, err := f.svc.Create(context.Background(), f.creator.ID, createInput(emails...))
	require.NoError(t, err)
	return r
}

func (f *fixture) video(t *testing.T, ownerID int64) *models.Video {
	t.Helper()
	v := &models.Video{
		UserID: ownerID, Title: "take one", FilePath: "videos/a.mp4", RecordingType: models.RecordingTypeVideo,
		Duration: 42, Status: models.VideoStatusReady,
	}
	require.NoError(t, f.db.CreateVideo(context.Background(), v))
	return v
}

func TestCreateGeneratesDistinctTokens(t *testing.T) {
	f := newFixture(t)
	r := f.request(t, "a@x.com", "b@x.com", "c@x.com")

	assert.Equal(t, models.RequestStatusActive, r.Status)
	assert.True(t, r.AIEditingEnabled)
	assert.False(t, r.AutoPublish)
	assert.Len(t, r.InviteToken, TokenLength)
	assert.Regexp(t, `^[0-9a-f]{32}$`, r.InviteToken)

	stored, err := f.db.ListInvitees(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	seen := map[string]bool{r.InviteToken: true}
	for _, inv := range stored {
		assert.Len(t, inv.InviteToken, TokenLength)
		assert.False(t, seen[inv.InviteToken], "token reused: %s", inv.InviteToken)
		seen[inv.InviteToken] = true
		assert.Equal(t, models.InviteeStatusPending, inv.Status)
	}

	assert.Len(t, f.notifier.sent, 3)
	assert.Equal(t, []string{fmt.Sprintf("%d:%s", f.creator.ID, models.EventContentRequestCreated)}, f.events.events)
}

func TestCreateContinuesWhenAnInvitationFails(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail["b@x.com"] = true

	r := f.request(t, "a@x.com", "b@x.com")

	assert.Len(t, r.Invitees, 2)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "a@x.com", f.notifier.sent[0].To)
}

func TestCreateValidation(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	lo, hi := 60, 30
	negative := -5.0

	tests := []struct {
		name  string
		in    models.CreateContentRequestRequest
		field string
	}{
		{
			name:  "duplicate invitee email",
			in:    createInput("a@x.com", "A@x.com"),
			field: "invitees.1.email",
		},
		{
			name: "deadline in the past",
			in: func() models.CreateContentRequestRequest {
				in := createInput("a@x.com")
				in.Deadline = &past
				return in
			}(),
			field: "deadline",
		},
		{
			name: "duration range inverted",
			in: func() models.CreateContentRequestRequest {
				in := createInput("a@x.com")
				in.Requirements = &models.Requirements{DurationMin: &lo, DurationMax: &hi}
				return in
			}(),
			field: "requirements.duration_max",
		},
		{
			name: "negative budget",
			in: func() models.CreateContentRequestRequest {
				in := createInput("a@x.com")
				in.TotalBudget = &negative
				return in
			}(),
			field: "total_budget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), f.creator.ID, tt.in)
			require.ErrorIs(t, err, apperr.ErrValidation)

			var appErr *apperr.Error
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Fields, tt.field)

			list, total, err := f.db.ListContentRequests(context.Background(), f.creator.ID, models.ContentRequestListParams{})
			require.NoError(t, err)
			assert.Zero(t, total)
			assert.Empty(t, list)
		})
	}
}

func TestGetAuthorization(t *testing.T) {
	f := newFixture(t)
	r := f.request(t, "a@x.com")
	ctx := context.Background()

	got, err := f.svc.Get(ctx, f.creator.ID, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Creator)
	assert.Equal(t, f.creator.Email, got.Creator.Email)
	assert.Len(t, got.Invitees, 1)

	_, err = f.svc.Get(ctx, f.invitee.ID, r.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Get(ctx, f.creator.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetByInviteToken(t *testing.T) {
	f := newFixture(t)
	r := f.request(t, "a@x.com", "b@x.com")
	ctx := context.Background()

	got, err := f.svc.GetByInviteToken(ctx, r.InviteToken)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	require.Len(t, got.Invitees, 2)
	for _, inv := range got.Invitees {
		assert.Empty(t, inv.InviteToken)
	}

	_, err = f.svc.GetByInviteToken(ctx, "does-not-exist")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()

	type step struct {
		op   func(*Service, context.Context, int64, int64) (*models.ContentRequest, error)
		want models.RequestStatus
		err  error
	}
	pause := (*Service).Pause
	resume := (*Service).Resume
	complete := (*Service).Complete
	cancel := (*Service).Cancel

	tests := []struct {
		name  string
		steps []step
	}{
		{"pause then resume", []step{
			{pause, models.RequestStatusPaused, nil},
			{resume, models.RequestStatusActive, nil},
		}},
		{"complete from paused", []step{
			{pause, models.RequestStatusPaused, nil},
			{complete, models.RequestStatusCompleted, nil},
		}},
		{"cancelled is terminal", []step{
			{cancel, models.RequestStatusCancelled, nil},
			{resume, models.RequestStatusCancelled, apperr.ErrValidation},
		}},
		{"completed cannot pause", []step{
			{complete, models.RequestStatusCompleted, nil},
			{pause, models.RequestStatusCompleted, apperr.ErrValidation},
		}},
		{"pause twice is a no-op", []step{
			{pause, models.RequestStatusPaused, nil},
			{pause, models.RequestStatusPaused, nil},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			r := f.request(t, "a@x.com")
			for i, st := range tt.steps {
				_, err := st.op(f.svc, ctx, f.creator.ID, r.ID)
				if st.err != nil {
					assert.ErrorIs(t, err, st.err, "step %d", i)
				} else {
					require.NoError(t, err, "step %d", i)
				}
				stored, err := f.db.GetContentRequest(ctx, r.ID)
				require.NoError(t, err)
				assert.Equal(t, st.want, stored.Status, "step %d", i)
			}
		})
	}
}

func TestTransitionRequiresCreator(t *testing.T) {
	f := newFixture(t)
	r := f.request(t, "a@x.com")

	_, err := f.svc.Pause(context.Background(), f.invitee.ID, r.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCompleteForcesFullCompletion(t *testing.T) {
	f := newFixture(t)
	r := f.request(t, "a@x.com", "b@x.com")

	got, err := f.svc.Complete(context.Background(), f.creator.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.CompletionPercentage)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	r := f.request(t, "a@x.com")
	ctx := context.Background()

	title := "New title"
	paused := models.RequestStatusPaused
	got, err := f.svc.Update(ctx, f.creator.ID, r.ID, models.UpdateContentRequestRequest{Title: &title, Status: &paused})
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, models.RequestStatusPaused, got.Status)

	_, err = f.svc.Update(ctx, f.invitee.ID, r.ID, models.UpdateContentRequestRequest{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSubmitVideo(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token links video and invitee", func(t *testing.T) {
		f := newFixture(t)
		r := f.request(t, "a@x.com", "b@x.com")
		v := f.video(t, f.invitee.ID)

		got, err := f.svc.SubmitVideo(ctx, f.invitee.ID, r.ID, models.SubmitVideoRequest{
			VideoID: v.ID, InviteeToken: r.Invitees[0].InviteToken,
		})
		require.NoError(t, err)
		assert.Equal(t, models.VideoStatusSubmitted, got.Status)
		require.NotNil(t, got.ContentRequestID)
		assert.Equal(t, r.ID, *got.ContentRequestID)

		invitees, err := f.db.ListInvitees(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InviteeStatusSubmitted, invitees[0].Status)
		assert.Equal(t, models.InviteeStatusPending, invitees[1].Status)

		stored, err := f.db.GetContentRequest(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, 50.0, stored.CompletionPercentage)

		assert.Contains(t, f.events.events, fmt.Sprintf("%d:%s", f.creator.ID, models.EventVideoSubmitted))
		var kinds []string
		for _, m := range f.notifier.sent {
			kinds = append(kinds, m.Kind)
		}
		assert.Contains(t, kinds, notify.KindSubmission)
	})

	t.Run("foreign token is forbidden and mutates nothing", func(t *testing.T) {
		f := newFixture(t)
		target := f.request(t, "a@x.com")
		other := f.request(t, "b@x.com")
		v := f.video(t, f.invitee.ID)

		_, err := f.svc.SubmitVideo(ctx, f.invitee.ID, target.ID, models.SubmitVideoRequest{
			VideoID: v.ID, InviteeToken: other.Invitees[0].InviteToken,
		})
		require.ErrorIs(t, err, apperr.ErrForbidden)

		stored, err := f.db.GetVideo(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, models.VideoStatusReady, stored.Status)
		assert.Nil(t, stored.ContentRequestID)

		for _, id := range []int64{target.ID, other.ID} {
			invitees, err := f.db.ListInvitees(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, models.InviteeStatusPending, invitees[0].Status)
		}
	})

	t.Run("someone else's video is forbidden", func(t *testing.T) {
		f := newFixture(t)
		r := f.request(t, "a@x.com")
		v := f.video(t, f.creator.ID)

		_, err := f.svc.SubmitVideo(ctx, f.invitee.ID, r.ID, models.SubmitVideoRequest{
			VideoID: v.ID, InviteeToken: r.Invitees[0].InviteToken,
		})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("second submission conflicts", func(t *testing.T) {
		f := newFixture(t)
		r := f.request(t, "a@x.com")
		first := f.video(t, f.invitee.ID)
		second := f.video(t, f.invitee.ID)
		token := r.Invitees[0].InviteToken

		_, err := f.svc.SubmitVideo(ctx, f.invitee.ID, r.ID, models.SubmitVideoRequest{VideoID: first.ID, InviteeToken: token})
		require.NoError(t, err)
		_, err = f.svc.SubmitVideo(ctx, f.invitee.ID, r.ID, models.SubmitVideoRequest{VideoID: second.ID, InviteeToken: token})
		assert.ErrorIs(t, err, apperr.ErrConflict)

		stored, err := f.db.GetVideo(ctx, second.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ContentRequestID)
	})

	t.Run("paused request rejects submissions", func(t *testing.T) {
		f := newFixture(t)
		r := f.request(t, "a@x.com")
		v := f.video(t, f.invitee.ID)
		_, err := f.svc.Pause(ctx, f.creator.ID, r.ID)
		require.NoError(t, err)

		_, err = f.svc.SubmitVideo(ctx, f.invitee.ID, r.ID, models.SubmitVideoRequest{
			VideoID: v.ID, InviteeToken: r.Invitees[0].InviteToken,
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unknown video is a validation error", func(t *testing.T) {
		f := newFixture(t)
		r := f.request(t, "a@x.com")

		_, err := f.svc.SubmitVideo(ctx, f.invitee.ID, r.ID, models.SubmitVideoRequest{
			VideoID: 404, InviteeToken: r.Invitees[0].InviteToken,
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestCompletionTracksSubmissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.request(t, "a@x.com", "b@x.com", "c@x.com")

	want := []float64{33.33, 66.67, 100}
	for i, inv := range r.Invitees {
		v := f.video(t, f.invitee.ID)
		_, err := f.svc.SubmitVideo(ctx, f.invitee.ID, r.ID, models.SubmitVideoRequest{VideoID: v.ID, InviteeToken: inv.InviteToken})
		require.NoError(t, err)

		stored, err := f.db.GetContentRequest(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, want[i], stored.CompletionPercentage)
	}
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.request(t, "a@x.com", "b@x.com")

	v := f.video(t, f.invitee.ID)
	_, err := f.svc.SubmitVideo(ctx, f.invitee.ID, r.ID, models.SubmitVideoRequest{VideoID: v.ID, InviteeToken: r.Invitees[0].InviteToken})
	require.NoError(t, err)
	_, err = f.db.IncrementVideoCounter(ctx, v.ID, models.CounterViews)
	require.NoError(t, err)

	a, err := f.svc.Analytics(ctx, f.creator.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, a.TotalInvitees)
	assert.Equal(t, 1, a.SubmittedInvitees)
	assert.Equal(t, 1, a.PendingInvitees)
	assert.Equal(t, 1, a.SubmittedVideos)
	assert.Equal(t, 50.0, a.CompletionRate)
	assert.Equal(t, int64(1), a.TotalViews)
	assert.Equal(t, int64(42), a.TotalDuration)
	assert.Equal(t, "0:42", a.FormattedTotalDuration)
	assert.Nil(t, a.AverageQualityScore)
	assert.False(t, a.IsOverdue)
}

func TestDeleteUnlinksVideos(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.request(t, "a@x.com")
	v := f.video(t, f.invitee.ID)
	_, err := f.svc.SubmitVideo(ctx, f.invitee.ID, r.ID, models.SubmitVideoRequest{VideoID: v.ID, InviteeToken: r.Invitees[0].InviteToken})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.invitee.ID, r.ID), apperr.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, f.creator.ID, r.ID))

	stored, err := f.db.GetVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ContentRequestID)

	invitees, err := f.db.ListInvitees(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, invitees)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.creator.ID, r.ID), apperr.ErrNotFound)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.request(t, "a@x.com")

	c, err := f.svc.AddComment(ctx, f.creator.ID, r.ID, "Looks good")
	require.NoError(t, err)
	assert.Equal(t, models.CommentableContentRequest, c.CommentableType)

	comments, err := f.svc.Comments(ctx, f.creator.ID, r.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Looks good", comments[0].Body)

	_, err = f.svc.AddComment(ctx, f.invitee.ID, r.ID, "hi")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{32}$`, a)
	assert.NotEqual(t, a, b)
}

// racingStore lets a submission commit between the service's read of a
// request and its write.
type racingStore struct {
	*memdb.DB
	beforeUpdate func()
}

func (s *racingStore) UpdateContentRequest(ctx context.Context, r *models.ContentRequest) error {
	if s.beforeUpdate != nil {
		s.beforeUpdate()
		s.beforeUpdate = nil
	}
	return s.DB.UpdateContentRequest(ctx, r)
}

func TestUpdateKeepsConcurrentCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.request(t, "a@x.com")
	v := f.video(t, f.invitee.ID)

	store := &racingStore{DB: f.db}
	store.beforeUpdate = func() {
		_, err := f.db.SubmitVideo(ctx, models.Submission{RequestID: r.ID, InviteeID: r.Invitees[0].ID, VideoID: v.ID})
		require.NoError(t, err)
	}
	svc := New(store, notify.NewDispatcher(f.notifier, "http://app.test"), f.events)

	title := "Renamed"
	got, err := svc.Update(ctx, f.creator.ID, r.ID, models.UpdateContentRequestRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.CompletionPercentage)

	stored, err := f.db.GetContentRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)
	assert.Equal(t, 100.0, stored.CompletionPercentage)
}

func TestPauseKeepsConcurrentCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.request(t, "a@x.com", "b@x.com")
	v := f.video(t, f.invitee.ID)

	store := &racingStore{DB: f.db}
	store.beforeUpdate = func() {
		_, err := f.db.SubmitVideo(ctx, models.Submission{RequestID: r.ID, InviteeID: r.Invitees[1].ID, VideoID: v.ID})
		require.NoError(t, err)
	}
	svc := New(store, notify.NewDispatcher(f.notifier, "http://app.test"), f.events)

	got, err := svc.Pause(ctx, f.creator.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPaused, got.Status)
	assert.Equal(t, 50.0, got.CompletionPercentage)

	completed, err := svc.Complete(ctx, f.creator.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, completed.CompletionPercentage)
}

func TestSubmitVideoEligibility(t *testing.T) {
	ctx := context.Background()

	requireVideoIDError := func(t *testing.T, err error) {
		t.Helper()
		var appErr *apperr.Error
		require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %v", err)
		require.Equal(t, apperr.KindValidation, appErr.Kind)
		assert.Contains(t, appErr.Fields, "video_id")
	}

	t.Run("video submitted to another request", func(t *testing.T) {
		f := newFixture(t)
		first := f.request(t, "a@x.com")
		second := f.request(t, "b@x.com")
		v := f.video(t, f.invitee.ID)

		_, err := f.svc.SubmitVideo(ctx, f.invitee.ID, first.ID, models.SubmitVideoRequest{
			VideoID: v.ID, InviteeToken: first.Invitees[0].InviteToken,
		})
		require.NoError(t, err)

		_, err = f.svc.SubmitVideo(ctx, f.invitee.ID, second.ID, models.SubmitVideoRequest{
			VideoID: v.ID, InviteeToken: second.Invitees[0].InviteToken,
		})
		requireVideoIDError(t, err)

		stored, err := f.db.GetVideo(ctx, v.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ContentRequestID)
		assert.Equal(t, first.ID, *stored.ContentRequestID)

		invitees, err := f.db.ListInvitees(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InviteeStatusPending, invitees[0].Status)

		a, err := f.svc.Analytics(ctx, f.creator.ID, first.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, a.SubmittedVideos)
	})

	t.Run("video uploaded for another request", func(t *testing.T) {
		f := newFixture(t)
		owner := f.request(t, "a@x.com")
		target := f.request(t, "b@x.com")
		v := &models.Video{
			UserID: f.invitee.ID, ContentRequestID: &owner.ID, Title: "take two", FilePath: "videos/b.mp4",
			RecordingType: models.RecordingTypeVideo, Duration: 10, Status: models.VideoStatusReady,
		}
		require.NoError(t, f.db.CreateVideo(ctx, v))

		_, err := f.svc.SubmitVideo(ctx, f.invitee.ID, target.ID, models.SubmitVideoRequest{
			VideoID: v.ID, InviteeToken: target.Invitees[0].InviteToken,
		})
		requireVideoIDError(t, err)
	})

	t.Run("video still processing", func(t *testing.T) {
		f := newFixture(t)
		r := f.request(t, "a@x.com")
		v := &models.Video{
			UserID: f.invitee.ID, Title: "raw", FilePath: "videos/c.mp4",
			RecordingType: models.RecordingTypeVideo, Duration: 10, Status: models.VideoStatusProcessing,
		}
		require.NoError(t, f.db.CreateVideo(ctx, v))

		_, err := f.svc.SubmitVideo(ctx, f.invitee.ID, r.ID, models.SubmitVideoRequest{
			VideoID: v.ID, InviteeToken: r.Invitees[0].InviteToken,
		})
		requireVideoIDError(t, err)

		stored, err := f.db.GetVideo(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, models.VideoStatusProcessing, stored.Status)
		assert.Nil(t, stored.ContentRequestID)
	})

	t.Run("store rejects an ineligible video", func(t *testing.T) {
		f := newFixture(t)
		r := f.request(t, "a@x.com")
		v := &models.Video{
			UserID: f.invitee.ID, Title: "old", FilePath: "videos/d.mp4",
			RecordingType: models.RecordingTypeVideo, Duration: 10, Status: models.VideoStatusArchived,
		}
		require.NoError(t, f.db.CreateVideo(ctx, v))

		_, err := f.db.SubmitVideo(ctx, models.Submission{RequestID: r.ID, InviteeID: r.Invitees[0].ID, VideoID: v.ID})
		requireVideoIDError(t, err)

		invitees, err := f.db.ListInvitees(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InviteeStatusPending, invitees[0].Status)
	})
}
