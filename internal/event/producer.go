package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	pkgkafka "github.com/utafrali/CampusMerchGo/pkg/kafka"
)

// Kafka topic constants for merchandise domain events.
const (
	TopicReservationCreated       = "merch.reservation.created"
	TopicReservationStatusChanged = "merch.reservation.status_changed"
	TopicReservationPaid          = "merch.reservation.paid"
	TopicReservationCancelled     = "merch.reservation.cancelled"
	TopicReservationReturned      = "merch.reservation.returned"
	TopicStockAdjusted            = "merch.stock.adjusted"
	TopicAuditApplied             = "merch.audit.applied"
)

// Aggregate type constants.
const (
	AggregateTypeReservation = "reservation"
	AggregateTypeStockItem   = "stock_item"
	AggregateTypeAuditLog    = "audit_log"
)

// Source identifier for events originating from this service.
const SourceMerchService = "merch-service"

// ReservationData is the payload shared by reservation lifecycle events.
type ReservationData struct {
	ReservationID string  `json:"reservation_id"`
	BundleID      *string `json:"bundle_id,omitempty"`
	StudentID     string  `json:"student_id"`
	ItemCode      int     `json:"item_code"`
	ItemName      string  `json:"item_name"`
	Size          string  `json:"size"`
	Quantity      int     `json:"quantity"`
	TotalPrice    int64   `json:"total_price"`
	Status        string  `json:"status"`
	Reason        string  `json:"reason,omitempty"`
}

// StatusChangedData is the payload for a reservation.status_changed event.
type StatusChangedData struct {
	ReservationID string `json:"reservation_id"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	Event         string `json:"event"`
}

// ReceiptData is the payload for a reservation.paid event. It carries
// everything an external receipt component needs to record the transaction.
type ReceiptData struct {
	ReservationID string    `json:"reservation_id"`
	BundleID      *string   `json:"bundle_id,omitempty"`
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name"`
	Course        string    `json:"course"`
	ItemCode      int       `json:"item_code"`
	ItemName      string    `json:"item_name"`
	Size          string    `json:"size"`
	Quantity      int       `json:"quantity"`
	UnitPrice     int64     `json:"unit_price"`
	TotalPrice    int64     `json:"total_price"`
	PaymentMethod string    `json:"payment_method"`
	PaidAt        time.Time `json:"paid_at"`
}

// StockAdjustedData is the payload for a stock.adjusted event.
type StockAdjustedData struct {
	ItemCode       int     `json:"item_code"`
	Size           string  `json:"size"`
	QuantityChange int     `json:"quantity_change"`
	Reason         string  `json:"reason"`
	ReferenceID    *string `json:"reference_id,omitempty"`
}

// AuditAppliedData is the payload for an audit.applied event.
type AuditAppliedData struct {
	LogID           string `json:"log_id"`
	StaffID         string `json:"staff_id"`
	ApprovedBy      string `json:"approved_by"`
	ItemCode        int    `json:"item_code"`
	ItemSize        string `json:"item_size"`
	QuantityChanged int    `json:"quantity_changed"`
}

// Producer publishes merchandise domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the merch service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func reservationData(r *domain.Reservation) ReservationData {
	return ReservationData{
		ReservationID: r.ID,
		BundleID:      r.BundleID,
		StudentID:     r.StudentID,
		ItemCode:      r.ItemCode,
		ItemName:      r.ItemName,
		Size:          r.Size,
		Quantity:      r.Quantity,
		TotalPrice:    r.TotalPrice,
		Status:        r.Status,
		Reason:        r.Reason,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceMerchService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// PublishReservationCreated publishes a reservation.created event.
func (p *Producer) PublishReservationCreated(ctx context.Context, r *domain.Reservation) error {
	return p.publish(ctx, TopicReservationCreated, r.ID, AggregateTypeReservation, reservationData(r))
}

// PublishStatusChanged publishes a reservation.status_changed event.
func (p *Producer) PublishStatusChanged(ctx context.Context, reservationID, fromStatus, toStatus, event string) error {
	data := StatusChangedData{
		ReservationID: reservationID,
		FromStatus:    fromStatus,
		ToStatus:      toStatus,
		Event:         event,
	}
	return p.publish(ctx, TopicReservationStatusChanged, reservationID, AggregateTypeReservation, data)
}

// PublishReservationPaid publishes a reservation.paid event carrying the
// receipt payload.
func (p *Producer) PublishReservationPaid(ctx context.Context, receipt *ReceiptData) error {
	return p.publish(ctx, TopicReservationPaid, receipt.ReservationID, AggregateTypeReservation, receipt)
}

// PublishReservationCancelled publishes a reservation.cancelled event.
func (p *Producer) PublishReservationCancelled(ctx context.Context, r *domain.Reservation) error {
	return p.publish(ctx, TopicReservationCancelled, r.ID, AggregateTypeReservation, reservationData(r))
}

// PublishReservationReturned publishes a reservation.returned event.
func (p *Producer) PublishReservationReturned(ctx context.Context, r *domain.Reservation) error {
	return p.publish(ctx, TopicReservationReturned, r.ID, AggregateTypeReservation, reservationData(r))
}

// PublishStockAdjusted publishes a stock.adjusted event.
func (p *Producer) PublishStockAdjusted(ctx context.Context, data *StockAdjustedData) error {
	aggregateID := fmt.Sprintf("%d/%s", data.ItemCode, data.Size)
	return p.publish(ctx, TopicStockAdjusted, aggregateID, AggregateTypeStockItem, data)
}

// PublishAuditApplied publishes an audit.applied event.
func (p *Producer) PublishAuditApplied(ctx context.Context, data *AuditAppliedData) error {
	return p.publish(ctx, TopicAuditApplied, data.LogID, AggregateTypeAuditLog, data)
}
