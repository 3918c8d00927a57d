package video

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/database/memdb"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/aiedit"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/storage"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/worker"
)

var (
	mp4Header = append([]byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom"), make([]byte, 64)...)
	pngHeader = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []worker.Job
	err  error
}

func (q *fakeQueue) Submit(job worker.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// stuckBlobs refuses every delete.
type stuckBlobs struct {
	storage.Storage
}

func (stuckBlobs) Delete(ctx context.Context, key string) error {
	return errors.New("permission denied")
}

type fixture struct {
	db    *memdb.DB
	blobs *storage.Local
	queue *fakeQueue
	svc   *Service
	owner *models.User
	other *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	blobs, err := storage.NewLocal(t.TempDir(), "http://localhost/storage")
	require.NoError(t, err)

	f := &fixture{db: memdb.New(), blobs: blobs, queue: &fakeQueue{}}
	f.svc = New(f.db, blobs, f.queue, aiedit.NewMock())

	f.owner = &models.User{Name: "Owner", Email: "owner@example.com"}
	f.other = &models.User{Name: "Other", Email: "other@example.com"}
	require.NoError(t, f.db.CreateUser(context.Background(), f.owner))
	require.NoError(t, f.db.CreateUser(context.Background(), f.other))
	return f
}

func upload(name string, content []byte) *File {
	return &File{Name: name, Size: int64(len(content)), Content: bytes.NewReader(content)}
}

func form() models.CreateVideoForm {
	return models.CreateVideoForm{Title: "Demo", RecordingType: "video", Duration: 60}
}

func (f *fixture) upload(t *testing.T) *models.Video {
	t.Helper()
	v, err := f.svc.Create(context.Background(), f.owner.ID, CreateInput{
		CreateVideoForm: form(),
		Video:           upload("demo.mp4", mp4Header),
	})
	require.NoError(t, err)
	return v
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %v", err)
	require.Equal(t, apperr.KindValidation, appErr.Kind)
	return appErr.Fields
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("stores media and queues processing", func(t *testing.T) {
		f := newFixture(t)
		v, err := f.svc.Create(ctx, f.owner.ID, CreateInput{
			CreateVideoForm: form(),
			Video:           upload("Demo.MP4", mp4Header),
			Thumbnail:       upload("cover.png", pngHeader),
		})
		require.NoError(t, err)

		assert.Equal(t, models.VideoStatusProcessing, v.Status)
		assert.Equal(t, "video/mp4", v.MimeType)
		assert.Equal(t, int64(len(mp4Header)), v.FileSize)
		assert.True(t, strings.HasPrefix(v.FilePath, "videos/"))
		assert.True(t, strings.HasSuffix(v.FilePath, ".mp4"))
		require.NotNil(t, v.ThumbnailPath)
		assert.True(t, strings.HasPrefix(*v.ThumbnailPath, "thumbnails/"))

		exists, err := f.blobs.Exists(ctx, v.FilePath)
		require.NoError(t, err)
		assert.True(t, exists)

		require.NotNil(t, v.ProcessingJobID)
		require.Len(t, f.queue.jobs, 1)
		assert.Equal(t, *v.ProcessingJobID, f.queue.jobs[0].ID)
		assert.JSONEq(t, `{"video_id":`+strconv.FormatInt(v.ID, 10)+`}`, string(f.queue.jobs[0].Payload))

		rec, err := f.db.GetJob(ctx, *v.ProcessingJobID)
		require.NoError(t, err)
		assert.Equal(t, models.JobQueued, rec.Status)
		assert.Equal(t, models.JobVideoProcessing, rec.Type)
	})

	t.Run("rejects content that is not video", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, f.owner.ID, CreateInput{
			CreateVideoForm: form(),
			Video:           upload("fake.mp4", []byte("just some text pretending")),
		})
		assert.Contains(t, fieldsOf(t, err), "video_file")
	})

	t.Run("rejects unknown content request", func(t *testing.T) {
		f := newFixture(t)
		in := CreateInput{CreateVideoForm: form(), Video: upload("demo.mp4", mp4Header)}
		missing := int64(404)
		in.ContentRequestID = &missing
		_, err := f.svc.Create(ctx, f.owner.ID, in)
		assert.Contains(t, fieldsOf(t, err), "content_request_id")
	})

	t.Run("full queue fails the job but keeps the video", func(t *testing.T) {
		f := newFixture(t)
		f.queue.err = worker.ErrQueueFull

		v := f.upload(t)
		assert.Equal(t, models.VideoStatusProcessing, v.Status)

		rec, err := f.db.GetJob(ctx, *v.ProcessingJobID)
		require.NoError(t, err)
		assert.Equal(t, models.JobFailed, rec.Status)
		assert.Equal(t, worker.ErrQueueFull.Error(), rec.Error)

		f.queue.err = nil
		job, err := f.svc.Reprocess(ctx, f.owner.ID, v.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobQueued, job.Status)
		assert.NotEqual(t, rec.ID, job.ID)
	})
}

func TestValidateFiles(t *testing.T) {
	tests := []struct {
		name   string
		video  *File
		thumb  *File
		fields []string
	}{
		{"missing video", nil, nil, []string{"video_file"}},
		{"wrong extension", &File{Name: "clip.avi", Size: 10}, nil, []string{"video_file"}},
		{"too large", &File{Name: "clip.mp4", Size: MaxVideoSize + 1}, nil, []string{"video_file"}},
		{"bad thumbnail", &File{Name: "clip.webm", Size: 10}, &File{Name: "cover.pdf", Size: 10}, []string{"thumbnail"}},
		{"large thumbnail", &File{Name: "clip.mov", Size: 10}, &File{Name: "cover.jpg", Size: MaxThumbnailSize + 1}, []string{"thumbnail"}},
		{"valid", &File{Name: "clip.mov", Size: 10}, &File{Name: "cover.webp", Size: 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := make(apperr.Fields)
			ValidateFiles(fields, tt.video, tt.thumb)
			var got []string
			for k := range fields {
				got = append(got, k)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r := &models.ContentRequest{
		CreatorID: f.other.ID, Title: "r", Type: models.RequestTypeVideo,
		Status: models.RequestStatusActive, InviteToken: strings.Repeat("b", 32),
	}
	require.NoError(t, f.db.CreateContentRequest(ctx, r, nil))

	in := CreateInput{CreateVideoForm: form(), Video: upload("demo.mp4", mp4Header)}
	in.ContentRequestID = &r.ID
	linked, err := f.svc.Create(ctx, f.owner.ID, in)
	require.NoError(t, err)
	private := f.upload(t)

	got, err := f.svc.Get(ctx, f.owner.ID, linked.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, f.owner.ID, got.User.ID)
	require.NotNil(t, got.ContentRequest)

	_, err = f.svc.Get(ctx, f.other.ID, linked.ID)
	assert.NoError(t, err, "request creator can view submissions")

	_, err = f.svc.Get(ctx, f.other.ID, private.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Update(ctx, f.other.ID, linked.ID, models.UpdateVideoRequest{})
	assert.ErrorIs(t, err, apperr.ErrForbidden, "only the owner edits")

	_, err = f.svc.Get(ctx, f.owner.ID, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPublishAndArchive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	v := f.upload(t)

	v, err := f.svc.Publish(ctx, f.owner.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, v.IsPublished())

	v, err = f.svc.Archive(ctx, f.owner.ID, v.ID)
	require.NoError(t, err)
	assert.False(t, v.IsPublished())
	assert.NotNil(t, v.PublishedAt)

	submitted := models.VideoStatusSubmitted
	_, err = f.svc.Update(ctx, f.owner.ID, v.ID, models.UpdateVideoRequest{Status: &submitted})
	assert.Contains(t, fieldsOf(t, err), "status")
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes blobs and record", func(t *testing.T) {
		f := newFixture(t)
		v := f.upload(t)

		require.NoError(t, f.svc.Delete(ctx, f.owner.ID, v.ID))

		exists, err := f.blobs.Exists(ctx, v.FilePath)
		require.NoError(t, err)
		assert.False(t, exists)
		_, err = f.db.GetVideo(ctx, v.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("queues cleanup when blob delete fails", func(t *testing.T) {
		f := newFixture(t)
		v := f.upload(t)
		f.svc.blobs = stuckBlobs{Storage: f.blobs}

		require.NoError(t, f.svc.Delete(ctx, f.owner.ID, v.ID))

		_, err := f.db.GetVideo(ctx, v.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		pending, err := f.db.ListPendingCleanups(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, v.FilePath, pending[0].Path)
		assert.Equal(t, "permission denied", pending[0].LastError)
	})

	t.Run("others cannot delete", func(t *testing.T) {
		f := newFixture(t)
		v := f.upload(t)
		assert.ErrorIs(t, f.svc.Delete(ctx, f.other.ID, v.ID), apperr.ErrForbidden)
	})
}

func TestCountersAndAnalytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	v := f.upload(t)

	a, err := f.svc.Analytics(ctx, f.owner.ID, v.ID)
	require.NoError(t, err)
	assert.Zero(t, a.EngagementRate)
	assert.Nil(t, a.LastViewedAt)

	for i := 0; i < 3; i++ {
		_, err = f.svc.IncrementViews(ctx, v.ID)
		require.NoError(t, err)
	}
	_, err = f.svc.IncrementDownloads(ctx, v.ID)
	require.NoError(t, err)
	_, err = f.svc.IncrementShares(ctx, v.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateEngagement(ctx, f.owner.ID, v.ID, 42.5, 80)
	require.NoError(t, err)

	a, err = f.svc.Analytics(ctx, f.owner.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), a.Views)
	assert.Equal(t, int64(1), a.Downloads)
	assert.Equal(t, int64(1), a.Shares)
	assert.Equal(t, 42.5, a.EngagementRate)
	assert.Equal(t, 80.0, a.CompletionRate)
	assert.NotNil(t, a.LastViewedAt)

	_, err = f.svc.UpdateEngagement(ctx, f.owner.ID, v.ID, 120, -1)
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "engagement_rate")
	assert.Contains(t, fields, "completion_rate")

	_, err = f.svc.IncrementViews(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAISuggestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	v := f.upload(t)

	first, err := f.svc.AISuggestions(ctx, f.owner.ID, v.ID)
	require.NoError(t, err)
	require.Len(t, first.Suggestions, 3)
	assert.Equal(t, 7.5, first.OverallQuality)
	assert.Len(t, first.Recommendations, 3)

	second, err := f.svc.AISuggestions(ctx, f.owner.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Suggestions[0].ID, second.Suggestions[0].ID, "suggestions are generated once")
	assert.Equal(t, first.Recommendations, second.Recommendations)

	got, err := f.db.GetVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, got.AIProcessed)
	require.NotNil(t, got.QualityScore)
}

func TestApplySuggestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	v := f.upload(t)
	report, err := f.svc.AISuggestions(ctx, f.owner.ID, v.ID)
	require.NoError(t, err)
	trim, subtitle := report.Suggestions[0], report.Suggestions[2]

	t.Run("apply queues an edit job", func(t *testing.T) {
		desc, err := f.svc.ApplySuggestion(ctx, f.owner.ID, v.ID, models.ApplySuggestionRequest{SuggestionID: trim.ID, Action: "apply"})
		require.NoError(t, err)
		assert.Equal(t, models.JobQueued, desc.Status)
		assert.NotEmpty(t, desc.JobID)
		assert.NotNil(t, desc.EstimatedCompletion)

		rec, err := f.db.GetJob(ctx, desc.JobID)
		require.NoError(t, err)
		assert.Equal(t, models.JobAIEdit, rec.Type)

		s, err := f.db.GetSuggestion(ctx, trim.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SuggestionApplied, s.Status)
	})

	t.Run("reject only records the decision", func(t *testing.T) {
		queued := len(f.queue.jobs)
		desc, err := f.svc.ApplySuggestion(ctx, f.owner.ID, v.ID, models.ApplySuggestionRequest{SuggestionID: subtitle.ID, Action: "reject"})
		require.NoError(t, err)
		assert.Equal(t, models.JobRejected, desc.Status)
		assert.Empty(t, desc.JobID)
		assert.Len(t, f.queue.jobs, queued)

		s, err := f.db.GetSuggestion(ctx, subtitle.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SuggestionRejected, s.Status)
	})

	t.Run("suggestion of another video", func(t *testing.T) {
		otherVideo := f.upload(t)
		_, err := f.svc.ApplySuggestion(ctx, f.owner.ID, otherVideo.ID, models.ApplySuggestionRequest{SuggestionID: trim.ID, Action: "apply"})
		assert.Contains(t, fieldsOf(t, err), "suggestion_id")
	})
}

func TestReviewsAndComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	v := f.upload(t)

	reviews, err := f.svc.Reviews(ctx, f.owner.ID, v.ID)
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)

	_, err = f.svc.AddReview(ctx, f.owner.ID, v.ID, models.CreateReviewRequest{Rating: 4, Decision: models.DecisionApproved})
	require.NoError(t, err)
	reviews, err = f.svc.Reviews(ctx, f.owner.ID, v.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 4, reviews[0].Rating)

	_, err = f.svc.AddComment(ctx, f.owner.ID, v.ID, "looks good")
	require.NoError(t, err)
	comments, err := f.svc.Comments(ctx, f.owner.ID, v.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "looks good", comments[0].Body)

	_, err = f.svc.AddComment(ctx, f.other.ID, v.ID, "hi")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestTranscriptAndJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	v := f.upload(t)

	tr, err := f.svc.Transcript(ctx, f.owner.ID, v.ID)
	require.NoError(t, err)
	assert.Len(t, tr.Segments, 4)
	assert.Equal(t, 60.0, tr.Segments[3].End)

	job, err := f.svc.Job(ctx, f.owner.ID, *v.ProcessingJobID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, *job.VideoID)

	_, err = f.svc.Job(ctx, f.other.ID, *v.ProcessingJobID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

// submittingStore hands the video in to a request between the service's
// read and its write.
type submittingStore struct {
	*memdb.DB
	beforeUpdate func()
}

func (s *submittingStore) UpdateVideo(ctx context.Context, v *models.Video, prev models.VideoStatus) error {
	if s.beforeUpdate != nil {
		s.beforeUpdate()
		s.beforeUpdate = nil
	}
	return s.DB.UpdateVideo(ctx, v, prev)
}

func TestUpdateKeepsConcurrentSubmission(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *Service, *models.Video, *models.ContentRequest) {
		f := newFixture(t)
		v := &models.Video{
			UserID: f.owner.ID, Title: "Demo", FilePath: "videos/demo.mp4",
			RecordingType: models.RecordingTypeVideo, Duration: 60, Status: models.VideoStatusReady,
		}
		require.NoError(t, f.db.CreateVideo(ctx, v))

		r := &models.ContentRequest{
			CreatorID: f.other.ID, Title: "r", Type: models.RequestTypeVideo,
			Status: models.RequestStatusActive, InviteToken: strings.Repeat("c", 32),
		}
		invitees := []models.Invitee{{
			Email: "owner@example.com", Name: "Owner", Status: models.InviteeStatusPending, InviteToken: strings.Repeat("d", 32),
		}}
		require.NoError(t, f.db.CreateContentRequest(ctx, r, invitees))
		listed, err := f.db.ListInvitees(ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)

		store := &submittingStore{DB: f.db}
		store.beforeUpdate = func() {
			_, err := f.db.SubmitVideo(ctx, models.Submission{RequestID: r.ID, InviteeID: listed[0].ID, VideoID: v.ID})
			require.NoError(t, err)
		}
		return f, New(store, f.blobs, f.queue, aiedit.NewMock()), v, r
	}

	t.Run("title edit", func(t *testing.T) {
		f, svc, v, r := setup(t)
		title := "Retitled"

		got, err := svc.Update(ctx, f.owner.ID, v.ID, models.UpdateVideoRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Retitled", got.Title)
		assert.Equal(t, models.VideoStatusSubmitted, got.Status)

		stored, err := f.db.GetVideo(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, models.VideoStatusSubmitted, stored.Status)
		require.NotNil(t, stored.ContentRequestID)
		assert.Equal(t, r.ID, *stored.ContentRequestID)
	})

	t.Run("engagement update", func(t *testing.T) {
		f, svc, v, _ := setup(t)

		got, err := svc.UpdateEngagement(ctx, f.owner.ID, v.ID, 40, 75)
		require.NoError(t, err)
		assert.Equal(t, models.VideoStatusSubmitted, got.Status)
		require.NotNil(t, got.EngagementRate)
		assert.Equal(t, 40.0, *got.EngagementRate)
	})

	t.Run("archive after the video changed", func(t *testing.T) {
		f, svc, v, _ := setup(t)

		got, err := svc.Archive(ctx, f.owner.ID, v.ID)
		require.NoError(t, err)
		assert.Equal(t, models.VideoStatusSubmitted, got.Status)
	})
}
