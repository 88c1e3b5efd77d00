package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"faregate/internal/domain"
	"faregate/internal/service"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// VerifyHandler handles HTTP requests for the conductor verification
// endpoint. The endpoint is action-dispatched: one path, the action field
// selects the operation.
type VerifyHandler struct {
	sessionService  *service.SessionService
	verifierService *service.VerifierService
	manifestService *service.ManifestService
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(
	sessionService *service.SessionService,
	verifierService *service.VerifierService,
	manifestService *service.ManifestService,
) *VerifyHandler {
	return &VerifyHandler{
		sessionService:  sessionService,
		verifierService: verifierService,
		manifestService: manifestService,
	}
}

// AdditionalData carries the optional parameters of a verification action.
type AdditionalData struct {
	NewStationID   string  `json:"new_station_id"`
	AdditionalFare float64 `json:"additional_fare"`
	Notes          string  `json:"notes"`
}

// PostRequest is the HTTP request body for POST /verify.
type PostRequest struct {
	Action             string          `json:"action"`
	ConductorID        string          `json:"conductor_id"`
	PIN                string          `json:"pin"`
	RouteID            string          `json:"route_id"`
	BusID              string          `json:"bus_id"`
	QRTicketCode       string          `json:"qr_ticket_code"`
	VerificationAction string          `json:"verification_action"`
	AdditionalData     *AdditionalData `json:"additional_data"`
}

// PutRequest is the HTTP request body for PUT /verify.
type PutRequest struct {
	Action      string `json:"action"`
	ConductorID string `json:"conductor_id"`
	Location    string `json:"location"`
}

// SessionResponse is the session payload returned to the conductor client.
type SessionResponse struct {
	SessionID     string `json:"session_id"`
	ConductorID   string `json:"conductor_id"`
	ConductorName string `json:"conductor_name"`
	RouteID       string `json:"route_id"`
	BusID         string `json:"bus_id"`
	LoginTime     string `json:"login_time"`
	LastPingTime  string `json:"last_ping_time,omitempty"`
	Location      string `json:"current_location,omitempty"`
}

// TicketResponse is the ticket snapshot returned after a verification action.
type TicketResponse struct {
	TicketCode             string  `json:"ticket_code"`
	RouteID                string  `json:"route_id"`
	PassengerName          string  `json:"passenger_name,omitempty"`
	Status                 string  `json:"status"`
	IntendedStationID      string  `json:"intended_station_id"`
	ActualDropoffStationID string  `json:"actual_dropoff_station_id,omitempty"`
	TotalFare              float64 `json:"total_fare"`
	Currency               string  `json:"currency"`
	PaymentStatus          string  `json:"payment_status"`
	BoardingConfirmed      bool    `json:"boarding_confirmed"`
	BoardingTime           string  `json:"boarding_time,omitempty"`
	DropoffConfirmed       bool    `json:"dropoff_confirmed"`
	DropoffTime            string  `json:"dropoff_time,omitempty"`
	VerifyingConductorID   string  `json:"verifying_conductor_id,omitempty"`
}

// ManifestResponse is the live roster for the conductor's route.
type ManifestResponse struct {
	RouteID        string           `json:"route_id"`
	PassengerCount int              `json:"passenger_count"`
	Passengers     []TicketResponse `json:"passengers"`
}

// Post handles POST /verify: LOGIN and VERIFY_TICKET.
func (h *VerifyHandler) Post(c *gin.Context) {
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	switch req.Action {
	case "LOGIN":
		h.login(c, req)
	case "VERIFY_TICKET":
		h.verifyTicket(c, req)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown action"})
	}
}

func (h *VerifyHandler) login(c *gin.Context, req PostRequest) {
	session, err := h.sessionService.Login(c.Request.Context(), service.LoginRequest{
		ConductorID: req.ConductorID,
		PIN:         req.PIN,
		RouteID:     req.RouteID,
		BusID:       req.BusID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"success": true,
		"session": toSessionResponse(session),
	})
}

func (h *VerifyHandler) verifyTicket(c *gin.Context, req PostRequest) {
	verifyReq := service.VerifyTicketRequest{
		ConductorID: req.ConductorID,
		TicketCode:  req.QRTicketCode,
		Action:      service.VerificationAction(req.VerificationAction),
	}
	if req.AdditionalData != nil {
		verifyReq.NewStationID = req.AdditionalData.NewStationID
		verifyReq.AdditionalFare = req.AdditionalData.AdditionalFare
		verifyReq.Notes = req.AdditionalData.Notes
	}

	ticket, err := h.verifierService.VerifyTicket(c.Request.Context(), verifyReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"success": true,
		"ticket":  toTicketResponse(ticket),
	})
}

// Get handles GET /verify?conductor_id=&action=session|manifest.
func (h *VerifyHandler) Get(c *gin.Context) {
	conductorID := c.Query("conductor_id")

	switch c.Query("action") {
	case "session":
		session, err := h.sessionService.GetActiveSession(c.Request.Context(), conductorID)
		if err != nil {
			respondError(c, err)
			return
		}
		respondJSON(c, http.StatusOK, toSessionResponse(session))

	case "manifest":
		manifest, err := h.manifestService.BuildManifestForConductor(c.Request.Context(), conductorID, time.Now())
		if err != nil {
			respondError(c, err)
			return
		}

		passengers := make([]TicketResponse, 0, len(manifest.Passengers))
		for _, ticket := range manifest.Passengers {
			passengers = append(passengers, toTicketResponse(ticket))
		}

		respondJSON(c, http.StatusOK, ManifestResponse{
			RouteID:        manifest.RouteID,
			PassengerCount: len(passengers),
			Passengers:     passengers,
		})

	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown action"})
	}
}

// Put handles PUT /verify: LOGOUT and UPDATE_LOCATION.
func (h *VerifyHandler) Put(c *gin.Context) {
	var req PutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	switch req.Action {
	case "LOGOUT":
		if err := h.sessionService.Logout(c.Request.Context(), req.ConductorID); err != nil {
			respondError(c, err)
			return
		}
		respondJSON(c, http.StatusOK, gin.H{"success": true})

	case "UPDATE_LOCATION":
		if err := h.sessionService.UpdatePing(c.Request.Context(), req.ConductorID, req.Location); err != nil {
			respondError(c, err)
			return
		}
		respondJSON(c, http.StatusOK, gin.H{"success": true})

	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown action"})
	}
}

func toSessionResponse(session *domain.ConductorSession) SessionResponse {
	resp := SessionResponse{
		SessionID:     session.SessionID,
		ConductorID:   session.ConductorID,
		ConductorName: session.ConductorName,
		RouteID:       session.RouteID,
		BusID:         session.BusID,
		LoginTime:     session.LoginTime.Format(timeLayout),
		Location:      session.CurrentLocation,
	}
	if !session.LastPingTime.IsZero() {
		resp.LastPingTime = session.LastPingTime.Format(timeLayout)
	}
	return resp
}

func toTicketResponse(ticket *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		TicketCode:             ticket.TicketCode,
		RouteID:                ticket.RouteID,
		PassengerName:          ticket.PassengerName,
		Status:                 string(ticket.Status()),
		IntendedStationID:      ticket.IntendedStationID,
		ActualDropoffStationID: ticket.ActualDropoffStationID,
		TotalFare:              ticket.TotalFare,
		Currency:               ticket.Currency,
		PaymentStatus:          string(ticket.PaymentStatus),
		BoardingConfirmed:      ticket.BoardingConfirmed,
		DropoffConfirmed:       ticket.DropoffConfirmed,
		VerifyingConductorID:   ticket.VerifyingConductorID,
	}
	if !ticket.BoardingTime.IsZero() {
		resp.BoardingTime = ticket.BoardingTime.Format(timeLayout)
	}
	if !ticket.DropoffTime.IsZero() {
		resp.DropoffTime = ticket.DropoffTime.Format(timeLayout)
	}
	return resp
}
