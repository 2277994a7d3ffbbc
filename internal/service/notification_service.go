package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/lms-publisher/internal/models"
	"github.com/noah-isme/lms-publisher/pkg/mail"
)

const (
	templateMaterialPublished   = "material_published"
	templateAssignmentPublished = "assignment_published"
	templateStorageAlert        = "storage_alert"

	dueDateLayout = "2006-01-02 15:04 MST"
)

type recipientLister interface {
	ListApprovedRecipients(ctx context.Context, courseID string) ([]models.Recipient, error)
}

type mailRenderer interface {
	Render(name string, data interface{}) (mail.Content, error)
}

type downloadSigner interface {
	Generate(resourceID, relPath string) (string, time.Time, error)
}

// NotificationConfig tunes the fan-out.
type NotificationConfig struct {
	PublicBaseURL   string
	DownloadBaseURL string
	Concurrency     int
	SendTimeout     time.Duration
}

// NotificationService emails course audiences when content is published and
// administrators when storage crosses its threshold.
type NotificationService struct {
	recipients recipientLister
	transport  mail.Transport
	renderer   mailRenderer
	signer     downloadSigner
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        NotificationConfig
}

// NewNotificationService constructs the service. renderer and signer may be nil.
func NewNotificationService(recipients recipientLister, transport mail.Transport, renderer mailRenderer, signer downloadSigner, metrics *MetricsService, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if transport == nil {
		transport = mail.DisabledTransport{Reason: "no transport"}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	cfg.DownloadBaseURL = strings.TrimRight(cfg.DownloadBaseURL, "/")
	return &NotificationService{
		recipients: recipients,
		transport:  transport,
		renderer:   renderer,
		signer:     signer,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

type publicationView struct {
	RecipientName string
	ItemTitle     string
	CourseTitle   string
	Description   string
	DeepLink      string
	DownloadURL   string
	LinkURL       string
	DueDate       string
}

// NotifyPublication sends one email per approved enrollee with an address.
// Failures are isolated per recipient and reported, never returned.
func (s *NotificationService) NotifyPublication(ctx context.Context, item models.PublishableItem) models.DeliveryReport {
	report := models.DeliveryReport{ItemID: item.ID, Kind: item.Kind}

	recipients, err := s.recipients.ListApprovedRecipients(ctx, item.CourseID)
	if err != nil {
		report.Error = err.Error()
		s.logger.Error("list recipients failed", zap.String("item_id", item.ID), zap.String("course_id", item.CourseID), zap.Error(err))
		return report
	}
	report.Recipients = len(recipients)

	base := s.publicationBase(item)
	subject := publicationSubject(item)
	tags := []string{item.Kind.Label(), "published"}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, recipient := range recipients {
		if !recipient.HasEmail() {
			report.Skipped++
			continue
		}
		recipient := recipient
		g.Go(func() error {
			view := base
			view.RecipientName = recipient.DisplayName()
			msg := s.buildPublicationMessage(item, view, subject, tags)
			msg.To = recipient.Email
			msg.ToName = recipient.DisplayName()

			sendErr := s.send(gctx, msg)

			mu.Lock()
			defer mu.Unlock()
			if sendErr != nil {
				report.Failed++
				report.Failures = append(report.Failures, models.RecipientFailure{
					StudentID: recipient.StudentID,
					Email:     recipient.Email,
					Error:     sendErr.Error(),
				})
				s.logger.Warn("publication email failed",
					zap.String("item_id", item.ID),
					zap.String("kind", item.Kind.Label()),
					zap.String("student_id", recipient.StudentID),
					zap.Error(sendErr))
				return nil
			}
			report.SentCount++
			return nil
		})
	}
	_ = g.Wait()

	s.metrics.ObserveDelivery(report)
	s.logger.Info("publication notified",
		zap.String("item_id", item.ID),
		zap.String("kind", item.Kind.Label()),
		zap.Int("recipients", report.Recipients),
		zap.Int("sent", report.SentCount),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))
	return report
}

type storageAlertView struct {
	UsedPercent string
	Threshold   int
	UsedGB      string
	AvailableGB string
	TotalGB     string
	ComputedAt  string
}

// NotifyStorageAlert emails the storage threshold warning to a single address.
func (s *NotificationService) NotifyStorageAlert(ctx context.Context, to string, usage models.UsageSnapshot, threshold int) error {
	view := storageAlertView{
		UsedPercent: fmt.Sprintf("%.2f", usage.UsedPercent),
		Threshold:   threshold,
		UsedGB:      fmt.Sprintf("%.2f", usage.UsedGB),
		AvailableGB: fmt.Sprintf("%.2f", usage.AvailableGB),
		TotalGB:     fmt.Sprintf("%.2f", usage.TotalGB),
		ComputedAt:  usage.ComputedAt.UTC().Format(dueDateLayout),
	}
	msg := mail.Message{
		To:      to,
		Subject: fmt.Sprintf("Alerta de almacenamiento: %s%% usado", view.UsedPercent),
		Tags:    []string{"storage", "alert"},
	}
	content, err := s.render(templateStorageAlert, view)
	if err != nil {
		s.logger.Warn("storage alert template failed, using fallback", zap.Error(err))
		msg.Text = fmt.Sprintf("El uso de almacenamiento alcanzó %s%% (umbral %d%%). Usado: %s GB de %s GB.",
			view.UsedPercent, threshold, view.UsedGB, view.TotalGB)
	} else {
		msg.Text, msg.HTML = content.Text, content.HTML
	}
	return s.send(ctx, msg)
}

func (s *NotificationService) send(ctx context.Context, msg mail.Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	return s.transport.Send(sendCtx, msg)
}

func (s *NotificationService) render(name string, data interface{}) (mail.Content, error) {
	if s.renderer == nil {
		return mail.Content{}, mail.ErrTemplateNotFound
	}
	return s.renderer.Render(name, data)
}

func (s *NotificationService) buildPublicationMessage(item models.PublishableItem, view publicationView, subject string, tags []string) mail.Message {
	msg := mail.Message{Subject: subject, Tags: tags}
	content, err := s.render(publicationTemplate(item.Kind), view)
	if err != nil {
		s.logger.Warn("publication template failed, using fallback", zap.String("item_id", item.ID), zap.Error(err))
		msg.Text = fallbackPublicationText(item, view)
		return msg
	}
	msg.Text, msg.HTML = content.Text, content.HTML
	return msg
}

func (s *NotificationService) publicationBase(item models.PublishableItem) publicationView {
	view := publicationView{
		ItemTitle:   item.Title,
		CourseTitle: item.CourseTitle,
		Description: item.Description,
		DeepLink:    s.deepLink(item),
	}
	if item.LinkURL != nil {
		view.LinkURL = *item.LinkURL
	}
	if item.DueDate != nil {
		view.DueDate = item.DueDate.UTC().Format(dueDateLayout)
	}
	if item.Kind == models.ContentKindMaterial && item.FilePath != nil && *item.FilePath != "" && s.signer != nil {
		token, _, err := s.signer.Generate(item.ID, *item.FilePath)
		if err != nil {
			s.logger.Warn("download link not generated", zap.String("item_id", item.ID), zap.Error(err))
		} else {
			view.DownloadURL = s.cfg.DownloadBaseURL + "/downloads/" + url.PathEscape(token)
		}
	}
	return view
}

func (s *NotificationService) deepLink(item models.PublishableItem) string {
	segment := "materials"
	if item.Kind == models.ContentKindAssignment {
		segment = "assignments"
	}
	return fmt.Sprintf("%s/courses/%s/%s/%s", s.cfg.PublicBaseURL, url.PathEscape(item.CourseID), segment, url.PathEscape(item.ID))
}

func publicationTemplate(kind models.ContentKind) string {
	if kind == models.ContentKindAssignment {
		return templateAssignmentPublished
	}
	return templateMaterialPublished
}

func publicationSubject(item models.PublishableItem) string {
	if item.Kind == models.ContentKindAssignment {
		return "Nueva tarea publicada: " + item.Title
	}
	return "Nuevo material publicado: " + item.Title
}

func fallbackPublicationText(item models.PublishableItem, view publicationView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", view.RecipientName)
	fmt.Fprintf(&b, "%s en el curso \"%s\": %s.\n", strings.TrimSuffix(publicationSubject(item), ": "+item.Title), view.CourseTitle, view.ItemTitle)
	if view.DueDate != "" {
		fmt.Fprintf(&b, "Fecha de entrega: %s\n", view.DueDate)
	}
	fmt.Fprintf(&b, "\nVer en la plataforma: %s\n", view.DeepLink)
	return b.String()
}
