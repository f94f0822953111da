package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-leadflow/internal/config"
	"go-leadflow/internal/features/lead"
	"go-leadflow/internal/features/notification"
	"go-leadflow/internal/features/rule"
	"go-leadflow/internal/features/task"

	"go.uber.org/zap"
)

// DefaultDispatcher is the in-process capability implementation: tasks,
// notifications and lead mutations go to Mongo, messages go to the configured
// HTTP gateways.
type DefaultDispatcher struct {
	leadRepo         lead.LeadRepository
	taskRepo         task.TaskRepository
	notificationRepo notification.NotificationRepository
	httpClient       *http.Client
	emailGatewayURL  string
	whatsGatewayURL  string
	logger           *zap.Logger
}

func NewDispatcher(
	cfg *config.Config,
	leadRepo lead.LeadRepository,
	taskRepo task.TaskRepository,
	notificationRepo notification.NotificationRepository,
	logger *zap.Logger,
) Dispatcher {
	return &DefaultDispatcher{
		leadRepo:         leadRepo,
		taskRepo:         taskRepo,
		notificationRepo: notificationRepo,
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		emailGatewayURL:  cfg.EmailGatewayURL,
		whatsGatewayURL:  cfg.WhatsAppGatewayURL,
		logger:           logger,
	}
}

func (d *DefaultDispatcher) Invoke(ctx context.Context, actionType rule.ActionType, cfg map[string]interface{}, subjectID string) error {
	subject := d.subjectFields(ctx, subjectID)

	switch actionType {
	case rule.ActionCreateTask:
		return d.createTask(ctx, cfg, subjectID, subject)

	case rule.ActionCreateNotification:
		return d.createNotification(ctx, cfg, subjectID, subject)

	case rule.ActionSendEmail:
		return d.sendGatewayMessage(ctx, "send_email", d.emailGatewayURL, cfg, subjectID, subject)

	case rule.ActionSendWhatsApp:
		return d.sendGatewayMessage(ctx, "send_whatsapp", d.whatsGatewayURL, cfg, subjectID, subject)

	case rule.ActionUpdateLeadStatus:
		status, _ := cfg["status"].(string)
		if status == "" {
			return Permanent("update_lead_status", fmt.Errorf("status is required"))
		}
		if err := d.leadRepo.UpdateStatus(ctx, subjectID, status); err != nil {
			return Transient("update_lead_status", err)
		}
		return nil

	case rule.ActionAddTag:
		tag, _ := cfg["tag"].(string)
		if tag == "" {
			return Permanent("add_tag", fmt.Errorf("tag is required"))
		}
		if err := d.leadRepo.AddTag(ctx, subjectID, tag); err != nil {
			return Transient("add_tag", err)
		}
		return nil

	case rule.ActionUpdateScore:
		points, ok := toInt(cfg["points"])
		if !ok {
			return Permanent("update_score", fmt.Errorf("points must be a number"))
		}
		if err := d.leadRepo.IncrementScore(ctx, subjectID, points); err != nil {
			return Transient("update_score", err)
		}
		return nil

	default:
		return Permanent(string(actionType), fmt.Errorf("unsupported action type: %s", actionType))
	}
}

func (d *DefaultDispatcher) createTask(ctx context.Context, cfg map[string]interface{}, subjectID string, subject map[string]interface{}) error {
	title, _ := cfg["title"].(string)
	if title == "" {
		return Permanent("create_task", fmt.Errorf("task title is required"))
	}
	description, _ := cfg["description"].(string)
	assignedTo, _ := cfg["assigned_to"].(string)

	t := &task.Task{
		Title:       RenderPlaceholders(title, subject),
		Description: RenderPlaceholders(description, subject),
		LeadID:      subjectID,
		AssignedTo:  assignedTo,
		Status:      task.TaskStatusPending,
	}
	if err := d.taskRepo.Create(ctx, t); err != nil {
		return Transient("create_task", err)
	}

	d.logger.Info("Created task", zap.String("title", t.Title), zap.String("lead_id", subjectID))
	return nil
}

func (d *DefaultDispatcher) createNotification(ctx context.Context, cfg map[string]interface{}, subjectID string, subject map[string]interface{}) error {
	message, _ := cfg["message"].(string)
	if message == "" {
		return Permanent("create_notification", fmt.Errorf("notification message is required"))
	}
	title, _ := cfg["title"].(string)

	n := &notification.Notification{
		Title:   RenderPlaceholders(title, subject),
		Message: RenderPlaceholders(message, subject),
		Type:    notification.NotificationTypeLead,
		LeadID:  subjectID,
	}
	if err := d.notificationRepo.Create(ctx, n); err != nil {
		return Transient("create_notification", err)
	}
	return nil
}

// sendGatewayMessage posts the rendered message to an outbound gateway. With
// no gateway configured it logs and succeeds, which keeps dev setups working.
func (d *DefaultDispatcher) sendGatewayMessage(ctx context.Context, op, url string, cfg map[string]interface{}, subjectID string, subject map[string]interface{}) error {
	payload := map[string]interface{}{
		"subject_id": subjectID,
		"timestamp":  time.Now().Format(time.RFC3339),
	}
	for k, v := range cfg {
		if s, ok := v.(string); ok {
			payload[k] = RenderPlaceholders(s, subject)
		} else {
			payload[k] = v
		}
	}

	if url == "" {
		d.logger.Info("No gateway configured, logging message instead",
			zap.String("op", op), zap.Any("payload", payload))
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Permanent(op, fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Permanent(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Transient(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Transient(op, fmt.Errorf("gateway returned status %d", resp.StatusCode))
	default:
		return Permanent(op, fmt.Errorf("gateway rejected message with status %d", resp.StatusCode))
	}
}

// subjectFields loads the lead for placeholder rendering. A missing lead is
// not fatal; templates simply render with what the config carries.
func (d *DefaultDispatcher) subjectFields(ctx context.Context, subjectID string) map[string]interface{} {
	l, err := d.leadRepo.GetByID(ctx, subjectID)
	if err != nil || l == nil {
		return map[string]interface{}{"id": subjectID}
	}
	return l.AsSubject()
}

// RenderPlaceholders substitutes {{field}} markers with subject values.
func RenderPlaceholders(text string, subject map[string]interface{}) string {
	for key, value := range subject {
		placeholder := fmt.Sprintf("{{%s}}", key)
		text = strings.ReplaceAll(text, placeholder, fmt.Sprintf("%v", value))
	}
	return text
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
