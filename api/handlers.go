package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/web3tea/doma-sentinel/extractor"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/processor/transformer"
	"github.com/web3tea/doma-sentinel/sentinel"
)

// triggerRequest is the body the poller's HTTP sink posts.
type triggerRequest struct {
	Message      string         `json:"message"`
	ResponseData map[string]any `json:"responseData"`
}

type extractionRequest struct {
	ResponseData map[string]any `json:"responseData"`
}

// bindJSON decodes the body keeping numbers exact; wei prices do not fit a float64.
func bindJSON(c *gin.Context, v any) error {
	if c.Request.Body == nil {
		return errors.New("empty request body")
	}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"sink":    s.local.Type(),
		"polling": s.poller.Status(),
		"lastId":  s.poller.LastID(c.Request.Context()),
		"filter":  s.engine.Current(),
	})
}

func (s *Server) handleGetFilter(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"filter":      s.engine.Current(),
		"description": s.engine.Describe(),
	})
}

func (s *Server) handleConfigureFilter(c *gin.Context) {
	var cfg models.FilterConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, fmt.Errorf("invalid filter: %w", err))
		return
	}
	if err := s.engine.Configure(cfg); err != nil {
		badRequest(c, err)
		return
	}
	s.logger.Infof("filters configured: %s", s.engine.Describe())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Filters configured successfully",
		"filter":  s.engine.Current(),
	})
}

// handleTrigger receives relayed notifications. Requests carrying event data
// are filtered locally before delivery; plain messages are forwarded as is.
func (s *Server) handleTrigger(c *gin.Context) {
	var req triggerRequest
	if err := bindJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	if req.ResponseData == nil {
		if req.Message == "" {
			badRequest(c, errors.New("message or responseData is required"))
			return
		}
		n := models.NewNotification(req.Message, nil, nil, "")
		if err := s.local.Write(ctx, []*models.Notification{n}); err != nil {
			s.logger.Errorf("failed to forward message: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "filtered": false, "message": "Message forwarded"})
		return
	}

	rec, _ := extractor.ExtractResponse(req.ResponseData)
	lastID := scalar(req.ResponseData["lastId"])
	msg := req.Message
	if msg == "" {
		msg = s.formatter.Format(rec, lastID)
	}

	res, err := s.receiver.Relay(ctx, msg, rec, req.ResponseData, lastID)
	if err != nil {
		s.logger.Errorf("failed to deliver %q: %v", rec.DomainName, err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	if res.Filtered {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"filtered":  true,
			"criterion": res.Criterion,
			"message":   "Message filtered out by " + orAny(res.Criterion),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filtered": false,
		"message":  "Broadcast triggered for " + orAny(rec.DomainName),
	})
}

// handleTestExtraction shows what a response would extract to and whether
// the active filters would let it through. Nothing is delivered.
func (s *Server) handleTestExtraction(c *gin.Context) {
	var req extractionRequest
	if err := bindJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	if req.ResponseData == nil {
		badRequest(c, errors.New("responseData is required"))
		return
	}

	rec, found := extractor.ExtractResponse(req.ResponseData)
	rejection := s.engine.Evaluate(rec)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"found":      found,
		"extracted":  rec,
		"price":      transformer.FormatPrice(rec),
		"filter":     s.engine.Current(),
		"shouldSend": rejection == "",
		"rejectedBy": rejection,
	})
}

func (s *Server) handlePollingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": s.poller.Status(),
		"lastId": s.poller.LastID(c.Request.Context()),
	})
}

func (s *Server) handlePollingToggle(c *gin.Context) {
	status, err := s.poller.Toggle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error(), "status": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  status,
		"lastId":  s.poller.LastID(c.Request.Context()),
	})
}

func (s *Server) handlePollingRun(c *gin.Context) {
	report, err := s.poller.RunOnce(c.Request.Context())
	body := gin.H{
		"result":    report.Result(),
		"fetched":   report.Fetched,
		"delivered": report.Delivered,
		"filtered":  report.Filtered,
		"lastId":    report.LastID,
		"acked":     report.Acked,
	}
	if err != nil {
		body["error"] = err.Error()
		status := http.StatusBadGateway
		if errors.Is(err, sentinel.ErrCycleInProgress) || errors.Is(err, sentinel.ErrSentinelClosed) {
			status = http.StatusConflict
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func orAny(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
