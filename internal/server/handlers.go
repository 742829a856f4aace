package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/address"
	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/Veraticus/the-spice-must-chat/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	dateLayout       = "2006-01-02"
)

type messageRequest struct {
	From        string `json:"from"`
	FromName    string `json:"fromName"`
	MessageType string `json:"messageType"`
	Text        string `json:"text"`
	AudioURL    string `json:"audioUrl"`
	ImageURL    string `json:"imageUrl"`
	MessageID   string `json:"messageId"`
}

type sendDocumentRequest struct {
	Phone            string `json:"phone"`
	PatientID        string `json:"patientId"`
	PrescriptionID   string `json:"prescriptionId"`
	PrescriptionType string `json:"prescriptionType"`
	PatientName      string `json:"patientName"`
}

func (s *Server) handleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	msg, err := req.toInbound(s.deps.Now())
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := s.deps.Messages.Handle(c.Request.Context(), msg)
	if err != nil {
		s.logger.Error("message_failed", "message_id", msg.MessageID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	body := gin.H{
		"success": true,
		"outcome": res.Outcome,
		"replied": res.Replied,
	}
	if res.Transaction != nil {
		body["transactionId"] = res.Transaction.ID
	}
	c.JSON(http.StatusOK, body)
}

func (r messageRequest) toInbound(now time.Time) (model.InboundMessage, error) {
	if strings.TrimSpace(r.From) == "" {
		return model.InboundMessage{}, common.MissingField("from")
	}
	if strings.TrimSpace(r.MessageType) == "" {
		return model.InboundMessage{}, common.MissingField("messageType")
	}

	msg := model.InboundMessage{
		ReceivedAt:    now,
		SourceAddress: strings.TrimSpace(r.From),
		DisplayName:   r.FromName,
		Kind:          model.ParseMessageKind(r.MessageType),
		MessageID:     r.MessageID,
	}

	switch msg.Kind {
	case model.KindText:
		if strings.TrimSpace(r.Text) == "" {
			return model.InboundMessage{}, common.MissingField("text")
		}
		msg.TextBody = r.Text
	case model.KindAudio:
		if strings.TrimSpace(r.AudioURL) == "" {
			return model.InboundMessage{}, common.MissingField("audioUrl")
		}
		msg.MediaRef = r.AudioURL
	case model.KindImage:
		msg.MediaRef = r.ImageURL
		msg.TextBody = r.Text
	case model.KindUnknown:
	}
	return msg, nil
}

func (s *Server) handleStatus(c *gin.Context) {
	record := s.deps.Session.Status()
	body := gin.H{
		"status":    record.Status,
		"connected": s.deps.Session.IsConnected(),
		"updatedAt": record.UpdatedAt,
	}
	if record.Status == model.StatusWaitingQR && record.PairingPayload != "" {
		body["pairingPayload"] = record.PairingPayload
	} else {
		body["pairingPayload"] = nil
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleQR(c *gin.Context) {
	code, ok := s.deps.Session.CurrentPairingCode()
	if !ok || s.deps.Session.IsConnected() {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": common.ErrNoPairingCode.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "qr": code})
}

func (s *Server) handleSendDocument(c *gin.Context) {
	var req sendDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Phone) == "" {
		badRequest(c, common.MissingField("phone").Error())
		return
	}
	if strings.TrimSpace(req.PrescriptionID) == "" {
		badRequest(c, common.MissingField("prescriptionId").Error())
		return
	}

	if s.deps.Documents == nil || s.deps.Sender == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "document delivery is not configured"})
		return
	}
	if !s.deps.Session.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": common.ErrNotConnected.Error()})
		return
	}

	ctx := c.Request.Context()
	doc, err := s.deps.Documents.Resolve(ctx, service.DocumentRef{
		PatientID:    req.PatientID,
		PatientName:  req.PatientName,
		DocumentID:   req.PrescriptionID,
		DocumentType: req.PrescriptionType,
	})
	if err != nil {
		s.logger.Error("document_resolve_failed", "prescription_id", req.PrescriptionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	to := s.documentAddress(req.Phone)
	if !s.deps.Sender.SendDocument(ctx, to, doc) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to send document"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "to": to, "fileName": doc.FileName})
}

// documentAddress keeps a full address as given and gives bare digits the
// session domain.
func (s *Server) documentAddress(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.Contains(phone, "@") {
		return phone
	}
	return s.deps.Normalizer.Address(address.Digits(phone))
}

func (s *Server) handleTransactions(c *gin.Context) {
	if s.deps.Transactions == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "transaction listing is not available"})
		return
	}

	filter, err := parseFilter(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	txns, err := s.deps.Transactions.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	items := make([]gin.H, 0, len(txns))
	for _, txn := range txns {
		items = append(items, gin.H{
			"id":          txn.ID,
			"messageId":   txn.MessageID,
			"date":        txn.OccurredOn.Format(dateLayout),
			"amount":      txn.Amount.StringFixed(2),
			"direction":   txn.Direction,
			"description": txn.Description,
			"category":    txn.Category,
			"contextTag":  txn.ContextTag,
			"source":      txn.Source,
			"senderName":  txn.SenderName,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": items, "count": len(items)})
}

var errInvalidQuery = errors.New("invalid query parameter")

func parseFilter(c *gin.Context) (service.TransactionFilter, error) {
	filter := service.TransactionFilter{Limit: defaultListLimit}

	parseDate := func(key string) (*time.Time, error) {
		raw := c.Query(key)
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", errInvalidQuery, key)
		}
		return &t, nil
	}

	var err error
	if filter.StartDate, err = parseDate("from"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDate("to"); err != nil {
		return filter, err
	}

	switch tag := model.ContextTag(strings.ToUpper(c.Query("context"))); tag {
	case "", model.ContextHome, model.ContextClinic:
		filter.ContextTag = tag
	default:
		return filter, fmt.Errorf("%w: context must be HOME or CLINIC", errInvalidQuery)
	}

	switch dir := model.TransactionDirection(strings.ToLower(c.Query("direction"))); dir {
	case "", model.DirectionIncome, model.DirectionExpense:
		filter.Direction = dir
	default:
		return filter, fmt.Errorf("%w: direction must be income or expense", errInvalidQuery)
	}

	if raw := c.Query("limit"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n <= 0 {
			return filter, fmt.Errorf("%w: limit must be a positive integer", errInvalidQuery)
		}
		filter.Limit = min(n, maxListLimit)
	}

	return filter, nil
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}
