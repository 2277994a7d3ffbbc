package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-publisher/internal/models"
	"github.com/noah-isme/lms-publisher/pkg/mail"
)

type stubRecipients struct {
	byCourse map[string][]models.Recipient
	err      error
}

func (s *stubRecipients) ListApprovedRecipients(ctx context.Context, courseID string) ([]models.Recipient, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byCourse[courseID], nil
}

type stubTransport struct {
	mu     sync.Mutex
	sent   []mail.Message
	failTo map[string]error
}

func (t *stubTransport) Name() string { return "stub" }

func (t *stubTransport) Send(ctx context.Context, msg mail.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err, ok := t.failTo[msg.To]; ok {
		return err
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *stubTransport) messages() []mail.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]mail.Message(nil), t.sent...)
}

type stubRenderer struct {
	err error
}

func (r stubRenderer) Render(name string, data interface{}) (mail.Content, error) {
	if r.err != nil {
		return mail.Content{}, r.err
	}
	return mail.Content{Text: "text:" + name, HTML: "<p>" + name + "</p>"}, nil
}

type stubSigner struct{}

func (stubSigner) Generate(resourceID, relPath string) (string, time.Time, error) {
	return "tok-" + resourceID, time.Now().Add(time.Hour), nil
}

func approvedAudience() []models.Recipient {
	return []models.Recipient{
		{StudentID: "stu-1", Email: "ana@example.com", FullName: "Ana"},
		{StudentID: "stu-2", Email: "luis@example.com", Username: "luis"},
		{StudentID: "stu-3", Email: "eva@example.com", FullName: "Eva"},
	}
}

func materialItem() models.PublishableItem {
	path := "materials/guia.pdf"
	fileType := models.MaterialTypeFile
	return models.PublishableItem{
		ID:                    "mat-1",
		Kind:                  models.ContentKindMaterial,
		CourseID:              "course-1",
		CourseTitle:           "Biología",
		Title:                 "Guía 1",
		MaterialType:          &fileType,
		FilePath:              &path,
		IsPublished:           true,
		SendNotificationEmail: true,
	}
}

func newTestNotificationService(recipients recipientLister, transport mail.Transport, renderer mailRenderer) *NotificationService {
	return NewNotificationService(recipients, transport, renderer, stubSigner{}, nil, nil, NotificationConfig{
		PublicBaseURL:   "https://lms.example.com/",
		DownloadBaseURL: "https://lms.example.com/api/v1",
		Concurrency:     2,
		SendTimeout:     time.Second,
	})
}

func TestNotifyPublicationSendsToEveryApprovedEnrollee(t *testing.T) {
	transport := &stubTransport{}
	svc := newTestNotificationService(&stubRecipients{byCourse: map[string][]models.Recipient{"course-1": approvedAudience()}}, transport, stubRenderer{})

	report := svc.NotifyPublication(context.Background(), materialItem())

	assert.Equal(t, 3, report.Recipients)
	assert.Equal(t, 3, report.SentCount)
	assert.Zero(t, report.Failed)
	msgs := transport.messages()
	require.Len(t, msgs, 3)
	for _, msg := range msgs {
		assert.Equal(t, "Nuevo material publicado: Guía 1", msg.Subject)
		assert.Equal(t, []string{"material", "published"}, msg.Tags)
		assert.Equal(t, "text:material_published", msg.Text)
	}
}

func TestNotifyPublicationSkipsRecipientsWithoutEmail(t *testing.T) {
	transport := &stubTransport{}
	audience := append(approvedAudience(), models.Recipient{StudentID: "stu-4", Email: " "})
	svc := newTestNotificationService(&stubRecipients{byCourse: map[string][]models.Recipient{"course-1": audience}}, transport, stubRenderer{})

	report := svc.NotifyPublication(context.Background(), materialItem())

	assert.Equal(t, 4, report.Recipients)
	assert.Equal(t, 3, report.SentCount)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, transport.messages(), 3)
}

func TestNotifyPublicationIsolatesTransportFailures(t *testing.T) {
	transport := &stubTransport{failTo: map[string]error{"luis@example.com": errors.New("provider 503")}}
	svc := newTestNotificationService(&stubRecipients{byCourse: map[string][]models.Recipient{"course-1": approvedAudience()}}, transport, stubRenderer{})

	report := svc.NotifyPublication(context.Background(), materialItem())

	assert.Equal(t, 2, report.SentCount)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "stu-2", report.Failures[0].StudentID)
}

func TestNotifyPublicationWithEmptyAudience(t *testing.T) {
	transport := &stubTransport{}
	svc := newTestNotificationService(&stubRecipients{}, transport, stubRenderer{})

	report := svc.NotifyPublication(context.Background(), materialItem())

	assert.Zero(t, report.Recipients)
	assert.Zero(t, report.SentCount)
	assert.Empty(t, transport.messages())
}

func TestNotifyPublicationRecipientLookupFailure(t *testing.T) {
	transport := &stubTransport{}
	svc := newTestNotificationService(&stubRecipients{err: errors.New("db down")}, transport, stubRenderer{})

	report := svc.NotifyPublication(context.Background(), materialItem())

	assert.Equal(t, "db down", report.Error)
	assert.Empty(t, transport.messages())
}

func TestNotifyPublicationFallsBackWhenTemplateFails(t *testing.T) {
	transport := &stubTransport{}
	due := time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC)
	item := models.PublishableItem{ID: "asg-1", Kind: models.ContentKindAssignment, CourseID: "course-1", CourseTitle: "Física", Title: "Tarea 1", DueDate: &due}
	svc := newTestNotificationService(&stubRecipients{byCourse: map[string][]models.Recipient{"course-1": approvedAudience()[:1]}}, transport, stubRenderer{err: mail.ErrTemplateNotFound})

	report := svc.NotifyPublication(context.Background(), item)

	require.Equal(t, 1, report.SentCount)
	msg := transport.messages()[0]
	assert.Equal(t, "Nueva tarea publicada: Tarea 1", msg.Subject)
	assert.Empty(t, msg.HTML)
	assert.Contains(t, msg.Text, "Hola Ana")
	assert.Contains(t, msg.Text, "Fecha de entrega: 2024-05-10 23:59 UTC")
	assert.Contains(t, msg.Text, "https://lms.example.com/courses/course-1/assignments/asg-1")
}

func TestNotifyPublicationRendersDownloadAndDeepLinks(t *testing.T) {
	transport := &stubTransport{}
	renderer, err := mail.NewRenderer()
	require.NoError(t, err)
	svc := newTestNotificationService(&stubRecipients{byCourse: map[string][]models.Recipient{"course-1": approvedAudience()[:1]}}, transport, renderer)

	report := svc.NotifyPublication(context.Background(), materialItem())

	require.Equal(t, 1, report.SentCount)
	msg := transport.messages()[0]
	assert.Contains(t, msg.Text, "Hola Ana")
	assert.Contains(t, msg.Text, "https://lms.example.com/api/v1/downloads/tok-mat-1")
	assert.Contains(t, msg.Text, "https://lms.example.com/courses/course-1/materials/mat-1")
	assert.True(t, strings.Contains(msg.HTML, "Biología"))
}

func TestNotifyStorageAlert(t *testing.T) {
	transport := &stubTransport{}
	renderer, err := mail.NewRenderer()
	require.NoError(t, err)
	svc := newTestNotificationService(&stubRecipients{}, transport, renderer)

	usage := models.NewUsageSnapshot(17*models.BytesPerGB, 20*models.BytesPerGB, true, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, svc.NotifyStorageAlert(context.Background(), "ops@example.com", usage, 80))

	msgs := transport.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ops@example.com", msgs[0].To)
	assert.Contains(t, msgs[0].Subject, "85.00%")
	assert.Contains(t, msgs[0].Text, "umbral configurado: 80%")
}

func TestNotifyStorageAlertDisabledTransport(t *testing.T) {
	svc := newTestNotificationService(&stubRecipients{}, mail.DisabledTransport{Reason: "test"}, stubRenderer{})
	err := svc.NotifyStorageAlert(context.Background(), "ops@example.com", models.UsageSnapshot{}, 80)
	assert.ErrorIs(t, err, mail.ErrDisabled)
}
