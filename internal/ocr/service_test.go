package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/orthodoxmetrics/om-backend/internal/tenancy"
	"github.com/orthodoxmetrics/om-backend/pkg/db"
	"github.com/orthodoxmetrics/om-backend/pkg/db/models"
	"github.com/orthodoxmetrics/om-backend/pkg/enums"
	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []JobQueuedEvent
	err    error
}

func (p *recordingPublisher) PublishJobQueued(ctx context.Context, event JobQueuedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func openRecordsDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	conn, err := db.Open(sqlite.Open(fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", t.Name(), name)), db.PoolOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.TenantModels()...))
	t.Cleanup(func() { _ = db.CloseGorm(conn) })
	return conn
}

func bound(conn *gorm.DB, churchID uint, name string) context.Context {
	return tenancy.WithHandle(context.Background(), tenancy.Handle{ChurchID: churchID, DatabaseName: name, DB: conn})
}

func statusPtr(s enums.OCRJobStatus) *enums.OCRJobStatus { return &s }

func TestCreatePublishesQueuedEvent(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(pub, nil)
	ctx := bound(openRecordsDB(t, "st_mary_records_db"), 7, "st_mary_records_db")

	job, err := svc.Create(ctx, 42, CreateJobInput{Filename: "scan-001.png", OriginalFilename: "Baptisms 1954 p1.png", FileSize: 2048, RecordType: "baptism"})
	require.NoError(t, err)
	assert.Equal(t, enums.OCRJobStatusPending, job.Status)
	assert.Equal(t, "en", job.Language)
	assert.Equal(t, uint(7), job.ChurchID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, JobQueuedEvent{ChurchID: 7, DatabaseName: "st_mary_records_db", JobID: job.ID, QueuedAt: pub.events[0].QueuedAt}, pub.events[0])

	_, err = svc.Create(ctx, 42, CreateJobInput{Filename: "a", OriginalFilename: "a", RecordType: "confession"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateSucceedsWhenPublishFails(t *testing.T) {
	svc := NewService(&recordingPublisher{err: errors.New("topic unavailable")}, nil)
	ctx := bound(openRecordsDB(t, "st_mary_records_db"), 7, "st_mary_records_db")

	job, err := svc.Create(ctx, 42, CreateJobInput{Filename: "scan.png", OriginalFilename: "scan.png"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OCRJobStatusPending, got.Status)
}

func TestUpdateEnforcesTransitions(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(pub, nil)
	ctx := bound(openRecordsDB(t, "st_mary_records_db"), 7, "st_mary_records_db")

	job, err := svc.Create(ctx, 42, CreateJobInput{Filename: "scan.png", OriginalFilename: "scan.png"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, job.ID, UpdateJobInput{Status: statusPtr(enums.OCRJobStatusCompleted)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "pending cannot complete directly")

	_, err = svc.Update(ctx, job.ID, UpdateJobInput{Status: statusPtr(enums.OCRJobStatusProcessing)})
	require.NoError(t, err)

	score := decimal.RequireFromString("0.876")
	entities := json.RawMessage(`{"first_name":"Maria","last_name":"Ivanova"}`)
	done, err := svc.Update(ctx, job.ID, UpdateJobInput{Status: statusPtr(enums.OCRJobStatusCompleted), ConfidenceScore: &score, ExtractedEntities: entities})
	require.NoError(t, err)
	assert.Equal(t, enums.OCRJobStatusCompleted, done.Status)
	require.NotNil(t, done.ConfidenceScore)
	assert.True(t, done.ConfidenceScore.Equal(decimal.RequireFromString("0.88")))
	assert.JSONEq(t, string(entities), string(done.ExtractedEntities))

	_, err = svc.Update(ctx, job.ID, UpdateJobInput{Status: statusPtr(enums.OCRJobStatusPending)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "completed jobs are terminal")

	tooHigh := decimal.NewFromInt(2)
	_, err = svc.Update(ctx, job.ID, UpdateJobInput{ConfidenceScore: &tooHigh})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRetryClearsErrorAndRequeues(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(pub, nil)
	ctx := bound(openRecordsDB(t, "st_mary_records_db"), 7, "st_mary_records_db")

	job, err := svc.Create(ctx, 42, CreateJobInput{Filename: "scan.png", OriginalFilename: "scan.png"})
	require.NoError(t, err)
	msg := "unreadable page"
	failed, err := svc.Update(ctx, job.ID, UpdateJobInput{Status: statusPtr(enums.OCRJobStatusFailed), ErrorMessage: &msg})
	require.NoError(t, err)
	require.NotNil(t, failed.ErrorMessage)

	retried, err := svc.Update(ctx, job.ID, UpdateJobInput{Status: statusPtr(enums.OCRJobStatusPending)})
	require.NoError(t, err)
	assert.Equal(t, enums.OCRJobStatusPending, retried.Status)
	assert.Nil(t, retried.ErrorMessage)
	assert.Len(t, pub.events, 2)
}

func TestListFiltersAndScopesToChurch(t *testing.T) {
	svc := NewService(nil, nil)
	conn := openRecordsDB(t, "shared_records_db")
	stMary := bound(conn, 7, "shared_records_db")
	trinity := bound(conn, 9, "shared_records_db")

	first, err := svc.Create(stMary, 42, CreateJobInput{Filename: "1.png", OriginalFilename: "1.png"})
	require.NoError(t, err)
	_, err = svc.Create(stMary, 42, CreateJobInput{Filename: "2.png", OriginalFilename: "2.png"})
	require.NoError(t, err)
	_, err = svc.Update(stMary, first.ID, UpdateJobInput{Status: statusPtr(enums.OCRJobStatusProcessing)})
	require.NoError(t, err)

	all, err := svc.List(stMary, ListJobsQuery{})
	require.NoError(t, err)
	require.Len(t, all.Jobs, 2)
	assert.Equal(t, "2.png", all.Jobs[0].Filename, "newest first")
	assert.Empty(t, all.NextCursor)

	processing, err := svc.List(stMary, ListJobsQuery{Status: statusPtr(enums.OCRJobStatusProcessing)})
	require.NoError(t, err)
	require.Len(t, processing.Jobs, 1)

	other, err := svc.List(trinity, ListJobsQuery{})
	require.NoError(t, err)
	assert.Empty(t, other.Jobs)
	_, err = svc.Get(trinity, first.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Get(stMary, "not-a-uuid")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPagesWithCursor(t *testing.T) {
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tick := 0
	svc := &service{publisher: noopPublisher{}, now: func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}}
	ctx := bound(openRecordsDB(t, "st_mary_records_db"), 7, "st_mary_records_db")

	for i := 1; i <= 5; i++ {
		_, err := svc.Create(ctx, 42, CreateJobInput{Filename: fmt.Sprintf("%d.png", i), OriginalFilename: "scan.png"})
		require.NoError(t, err)
	}

	var seen []string
	cursor := ""
	for pages := 0; pages < 5; pages++ {
		page, err := svc.List(ctx, ListJobsQuery{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, job := range page.Jobs {
			seen = append(seen, job.Filename)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{"5.png", "4.png", "3.png", "2.png", "1.png"}, seen)

	_, err := svc.List(ctx, ListJobsQuery{Cursor: "not a cursor"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRequiresBoundChurchDatabase(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.List(context.Background(), ListJobsQuery{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTenantUnresolved))
	assert.Equal(t, tenancy.ReasonContextMissing, tenancy.ReasonOf(err))
}

type fakeResult struct {
	id  string
	err error
}

func (r fakeResult) Get(context.Context) (string, error) { return r.id, r.err }

type fakeTopic struct {
	msgs []*gcppubsub.Message
	err  error
}

func (f *fakeTopic) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	f.msgs = append(f.msgs, msg)
	return fakeResult{id: "msg-1", err: f.err}
}

func TestPubSubPublisher(t *testing.T) {
	topic := &fakeTopic{}
	pub := &PubSubPublisher{pub: topic, timeout: defaultPublishTimeout}

	event := JobQueuedEvent{ChurchID: 7, DatabaseName: "st_mary_records_db", JobID: "8d7c4c1e-1111-4c5e-9e0b-2f1d2c3b4a59"}
	require.NoError(t, pub.PublishJobQueued(context.Background(), event))
	require.Len(t, topic.msgs, 1)
	msg := topic.msgs[0]
	assert.Equal(t, EventJobQueued, msg.Attributes["event_type"])
	assert.Equal(t, "7", msg.Attributes["church_id"])
	assert.Equal(t, "st_mary_records_db", msg.Attributes["database_name"])

	var decoded JobQueuedEvent
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, event.JobID, decoded.JobID)

	topic.err = errors.New("deadline exceeded")
	require.Error(t, pub.PublishJobQueued(context.Background(), event))

	assert.Nil(t, NewPubSubPublisher(nil))
}
