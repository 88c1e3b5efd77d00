package tests

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"faregate/internal/domain"
	"faregate/internal/fare"
	"faregate/internal/repository"
	"faregate/internal/service"
)

// ──────────────────────────────────────────────
// 4. BOARDING VERIFICATION STATE MACHINE
// ──────────────────────────────────────────────

type verifierFixture struct {
	ticketRepo  *MockTicketRepository
	sessionRepo *MockSessionRepository
	catalogRepo *MockCatalogRepository
	wallet      *MockWalletLedger
	svc         *service.VerifierService
}

func newVerifierFixture() *verifierFixture {
	f := &verifierFixture{
		ticketRepo:  NewMockTicketRepository(),
		sessionRepo: NewMockSessionRepository(),
		catalogRepo: NewMockCatalogRepository(),
		wallet:      NewMockWalletLedger(),
	}
	f.svc = service.NewVerifierService(f.ticketRepo, f.sessionRepo, f.catalogRepo, f.wallet, service.CallerSuppliedDelta{}, nil)

	f.sessionRepo.AddSession(&domain.ConductorSession{
		SessionID:   "session-1",
		ConductorID: "conductor-1",
		RouteID:     "route-1",
		BusID:       "bus-7",
		IsActive:    true,
		LoginTime:   time.Now(),
	})
	f.ticketRepo.AddTicket(newIssuedTicket("TKT-1", "route-1"))
	for i, id := range []string{"station-1", "station-2", "station-3", "station-4", "station-5"} {
		f.catalogRepo.AddStation(&domain.Station{
			StationID:    id,
			RouteID:      "route-1",
			OrderOnRoute: i + 1,
		})
	}
	return f
}

func (f *verifierFixture) verify(t *testing.T, req service.VerifyTicketRequest) *domain.Ticket {
	t.Helper()
	if req.ConductorID == "" {
		req.ConductorID = "conductor-1"
	}
	ticket, err := f.svc.VerifyTicket(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return ticket
}

func TestVerifier_NoActiveSession(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()

	_, err := f.svc.VerifyTicket(context.Background(), service.VerifyTicketRequest{
		ConductorID: "conductor-off-duty",
		TicketCode:  "TKT-1",
		Action:      service.ActionScan,
	})
	if !errors.Is(err, service.ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestVerifier_TicketNotFound(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()

	_, err := f.svc.VerifyTicket(context.Background(), service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-MISSING",
		Action:      service.ActionScan,
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVerifier_WrongRouteBlocksEveryAction(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	f.ticketRepo.AddTicket(newIssuedTicket("TKT-OTHER", "route-2"))

	actions := []service.VerificationAction{
		service.ActionScan,
		service.ActionConfirmBoarding,
		service.ActionConfirmDropoff,
		service.ActionChangeDropoff,
	}

	for _, action := range actions {
		_, err := f.svc.VerifyTicket(context.Background(), service.VerifyTicketRequest{
			ConductorID:  "conductor-1",
			TicketCode:   "TKT-OTHER",
			Action:       action,
			NewStationID: "station-5",
		})
		if !errors.Is(err, service.ErrWrongRoute) {
			t.Errorf("action %s: expected ErrWrongRoute, got %v", action, err)
		}
	}

	// The route guard runs before any mutation.
	stored := f.ticketRepo.GetTicket("TKT-OTHER")
	if stored.BoardingConfirmed || stored.DropoffConfirmed || stored.TotalFare != 2.50 {
		t.Error("wrong-route ticket must be untouched")
	}
}

func TestVerifier_ScanIsReadOnly(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()

	ticket := f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionScan})

	if ticket.Status() != domain.TicketStatusIssued {
		t.Errorf("expected ISSUED, got %s", ticket.Status())
	}
	if f.ticketRepo.ConfirmBoardingCallCount != 0 {
		t.Error("scan must not confirm boarding")
	}

	stored := f.ticketRepo.GetTicket("TKT-1")
	if stored.BoardingConfirmed {
		t.Error("scan must not mutate the ticket")
	}
}

func TestVerifier_FullLifecycle(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()

	ticket := f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionConfirmBoarding})
	if ticket.Status() != domain.TicketStatusBoarded {
		t.Errorf("expected BOARDED, got %s", ticket.Status())
	}
	if ticket.VerifyingConductorID != "conductor-1" {
		t.Errorf("expected conductor-1 recorded, got %s", ticket.VerifyingConductorID)
	}

	ticket = f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionConfirmDropoff})
	if ticket.Status() != domain.TicketStatusDroppedOff {
		t.Errorf("expected DROPPED_OFF, got %s", ticket.Status())
	}
	// No station given: the planned drop-off is used.
	if ticket.ActualDropoffStationID != "station-3" {
		t.Errorf("expected intended station-3, got %s", ticket.ActualDropoffStationID)
	}
	if ticket.DropoffTime.IsZero() {
		t.Error("drop-off time not recorded")
	}
}

func TestVerifier_DropoffBeforeBoarding(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()

	_, err := f.svc.VerifyTicket(context.Background(), service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-1",
		Action:      service.ActionConfirmDropoff,
	})
	if !errors.Is(err, repository.ErrNotYetBoarded) {
		t.Errorf("expected ErrNotYetBoarded, got %v", err)
	}
}

func TestVerifier_DropoffStationOverride(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionConfirmBoarding})

	ticket := f.verify(t, service.VerifyTicketRequest{
		TicketCode:   "TKT-1",
		Action:       service.ActionConfirmDropoff,
		NewStationID: "station-4",
	})
	if ticket.ActualDropoffStationID != "station-4" {
		t.Errorf("expected override station-4, got %s", ticket.ActualDropoffStationID)
	}
}

func TestVerifier_DropoffOverrideOffRouteRejected(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionConfirmBoarding})

	_, err := f.svc.VerifyTicket(context.Background(), service.VerifyTicketRequest{
		ConductorID:  "conductor-1",
		TicketCode:   "TKT-1",
		Action:       service.ActionConfirmDropoff,
		NewStationID: "station-off-route",
	})
	if !errors.Is(err, service.ErrStationNotOnRoute) {
		t.Errorf("expected ErrStationNotOnRoute, got %v", err)
	}

	if stored := f.ticketRepo.GetTicket("TKT-1"); stored.DropoffConfirmed {
		t.Error("drop-off must not be confirmed at an off-route station")
	}
}

func TestVerifier_ChangeDropoffAppliesFareDelta(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionConfirmBoarding})

	ticket := f.verify(t, service.VerifyTicketRequest{
		TicketCode:     "TKT-1",
		Action:         service.ActionChangeDropoff,
		NewStationID:   "station-5",
		AdditionalFare: 0.75,
	})

	if ticket.ActualDropoffStationID != "station-5" {
		t.Errorf("expected station-5, got %s", ticket.ActualDropoffStationID)
	}
	if ticket.TotalFare != 3.25 {
		t.Errorf("expected fare 3.25, got %f", ticket.TotalFare)
	}

	// The extra stretch is charged to the passenger wallet.
	if f.wallet.DebitCallCount != 1 {
		t.Errorf("expected 1 wallet debit, got %d", f.wallet.DebitCallCount)
	}
	if f.wallet.LastDebitID != "passenger-1" || f.wallet.LastDebit != 0.75 {
		t.Errorf("unexpected debit: %s %f", f.wallet.LastDebitID, f.wallet.LastDebit)
	}
}

func TestVerifier_ChangeDropoffZeroDeltaSkipsWallet(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionConfirmBoarding})

	f.verify(t, service.VerifyTicketRequest{
		TicketCode:   "TKT-1",
		Action:       service.ActionChangeDropoff,
		NewStationID: "station-2",
	})

	if f.wallet.DebitCallCount != 0 {
		t.Errorf("no debit expected for a zero delta, got %d", f.wallet.DebitCallCount)
	}
}

func TestVerifier_ChangeDropoffNegativeDeltaRejected(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionConfirmBoarding})

	_, err := f.svc.VerifyTicket(context.Background(), service.VerifyTicketRequest{
		ConductorID:    "conductor-1",
		TicketCode:     "TKT-1",
		Action:         service.ActionChangeDropoff,
		NewStationID:   "station-5",
		AdditionalFare: -0.50,
	})
	if !errors.Is(err, service.ErrInvalidFareDelta) {
		t.Errorf("expected ErrInvalidFareDelta, got %v", err)
	}

	if stored := f.ticketRepo.GetTicket("TKT-1"); stored.TotalFare != 2.50 {
		t.Errorf("fare must be unchanged, got %f", stored.TotalFare)
	}
}

func TestVerifier_ChangeDropoffOffRouteLeavesTicketUnchanged(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionConfirmBoarding})

	_, err := f.svc.VerifyTicket(context.Background(), service.VerifyTicketRequest{
		ConductorID:    "conductor-1",
		TicketCode:     "TKT-1",
		Action:         service.ActionChangeDropoff,
		NewStationID:   "station-off-route",
		AdditionalFare: 0.75,
	})
	if !errors.Is(err, service.ErrStationNotOnRoute) {
		t.Errorf("expected ErrStationNotOnRoute, got %v", err)
	}

	stored := f.ticketRepo.GetTicket("TKT-1")
	if stored.TotalFare != 2.50 || stored.ActualDropoffStationID != "" {
		t.Error("failed change must leave ticket unchanged")
	}
	if f.wallet.DebitCallCount != 0 {
		t.Error("no debit may happen on a failed change")
	}
}

func TestVerifier_ChangeDropoffMissingStation(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionConfirmBoarding})

	_, err := f.svc.VerifyTicket(context.Background(), service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-1",
		Action:      service.ActionChangeDropoff,
	})
	if !errors.Is(err, service.ErrInvalidStationID) {
		t.Errorf("expected ErrInvalidStationID, got %v", err)
	}
}

func TestVerifier_ChangeDropoffAfterConfirmedDropoff(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionConfirmBoarding})
	f.verify(t, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionConfirmDropoff})

	_, err := f.svc.VerifyTicket(context.Background(), service.VerifyTicketRequest{
		ConductorID:    "conductor-1",
		TicketCode:     "TKT-1",
		Action:         service.ActionChangeDropoff,
		NewStationID:   "station-5",
		AdditionalFare: 0.50,
	})
	if !errors.Is(err, repository.ErrDropoffAlreadyConfirmed) {
		t.Errorf("expected ErrDropoffAlreadyConfirmed, got %v", err)
	}
}

func TestVerifier_UnknownActionRejected(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()

	_, err := f.svc.VerifyTicket(context.Background(), service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-1",
		Action:      "TELEPORT",
	})
	if !errors.Is(err, service.ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestVerifier_InputValidation(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	ctx := context.Background()

	_, err := f.svc.VerifyTicket(ctx, service.VerifyTicketRequest{TicketCode: "TKT-1", Action: service.ActionScan})
	if !errors.Is(err, service.ErrInvalidConductorID) {
		t.Errorf("expected ErrInvalidConductorID, got %v", err)
	}

	_, err = f.svc.VerifyTicket(ctx, service.VerifyTicketRequest{ConductorID: "conductor-1", Action: service.ActionScan})
	if !errors.Is(err, service.ErrInvalidTicketCode) {
		t.Errorf("expected ErrInvalidTicketCode, got %v", err)
	}
}

func TestVerifier_ScanServedFromCache(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	cache := NewMockCacheStore()
	svc := service.NewVerifierService(f.ticketRepo, f.sessionRepo, f.catalogRepo, f.wallet, service.CallerSuppliedDelta{}, cache)
	ctx := context.Background()

	scan := service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-1",
		Action:      service.ActionScan,
	}

	// First scan reads the row and populates the snapshot cache.
	if _, err := svc.VerifyTicket(ctx, scan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cache.HasTicket("TKT-1") {
		t.Fatal("first scan must cache the snapshot")
	}
	if f.ticketRepo.FindCallCount != 1 {
		t.Fatalf("expected 1 row read, got %d", f.ticketRepo.FindCallCount)
	}

	// The re-scan is served from cache without touching the repository.
	ticket, err := svc.VerifyTicket(ctx, scan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ticketRepo.FindCallCount != 1 {
		t.Errorf("re-scan must not read the row again, got %d reads", f.ticketRepo.FindCallCount)
	}
	if ticket.TicketCode != "TKT-1" || ticket.Status() != domain.TicketStatusIssued || ticket.TotalFare != 2.50 {
		t.Errorf("cached snapshot does not match the ticket: %+v", ticket)
	}
}

func TestVerifier_CachedSessionSkipsSessionLookup(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	cache := NewMockCacheStore()
	svc := service.NewVerifierService(f.ticketRepo, f.sessionRepo, f.catalogRepo, f.wallet, service.CallerSuppliedDelta{}, cache)
	ctx := context.Background()

	scan := service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-1",
		Action:      service.ActionScan,
	}

	if _, err := svc.VerifyTicket(ctx, scan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cache.HasSession("conductor-1") {
		t.Fatal("first action must cache the session snapshot")
	}

	if _, err := svc.VerifyTicket(ctx, scan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.sessionRepo.GetActiveCallCount != 1 {
		t.Errorf("expected 1 session lookup, got %d", f.sessionRepo.GetActiveCallCount)
	}
}

func TestVerifier_WrongRouteEnforcedOnCachedScan(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	f.sessionRepo.AddSession(&domain.ConductorSession{
		SessionID:   "session-2",
		ConductorID: "conductor-2",
		RouteID:     "route-2",
		IsActive:    true,
		LoginTime:   time.Now(),
	})
	f.ticketRepo.AddTicket(newIssuedTicket("TKT-R2", "route-2"))

	cache := NewMockCacheStore()
	svc := service.NewVerifierService(f.ticketRepo, f.sessionRepo, f.catalogRepo, f.wallet, service.CallerSuppliedDelta{}, cache)
	ctx := context.Background()

	// conductor-2 scans their own ticket, priming the cache.
	if _, err := svc.VerifyTicket(ctx, service.VerifyTicketRequest{
		ConductorID: "conductor-2",
		TicketCode:  "TKT-R2",
		Action:      service.ActionScan,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The cached snapshot still fails the route guard for conductor-1.
	_, err := svc.VerifyTicket(ctx, service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-R2",
		Action:      service.ActionScan,
	})
	if !errors.Is(err, service.ErrWrongRoute) {
		t.Errorf("expected ErrWrongRoute on cached scan, got %v", err)
	}
}

func TestVerifier_MutationInvalidatesCachedSnapshot(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	cache := NewMockCacheStore()
	svc := service.NewVerifierService(f.ticketRepo, f.sessionRepo, f.catalogRepo, f.wallet, service.CallerSuppliedDelta{}, cache)
	ctx := context.Background()

	if _, err := svc.VerifyTicket(ctx, service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-1",
		Action:      service.ActionScan,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.VerifyTicket(ctx, service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-1",
		Action:      service.ActionConfirmBoarding,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cache.HasTicket("TKT-1") {
		t.Error("mutation must invalidate the cached snapshot")
	}

	// The next scan reads the fresh state, not the stale snapshot.
	ticket, err := svc.VerifyTicket(ctx, service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-1",
		Action:      service.ActionScan,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status() != domain.TicketStatusBoarded {
		t.Errorf("expected BOARDED after invalidation, got %s", ticket.Status())
	}
}

func TestVerifier_RecomputedDeltaIgnoresRequestedAmount(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	f.catalogRepo.SetSurchargeRules("route-1", nil)

	// Swap in the server-side pricing policy at $0.30 per stop.
	svc := service.NewVerifierService(f.ticketRepo, f.sessionRepo, f.catalogRepo, f.wallet, service.NewRecomputedDelta(f.catalogRepo, 0.30), nil)
	ctx := context.Background()

	if _, err := svc.VerifyTicket(ctx, service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-1",
		Action:      service.ActionConfirmBoarding,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Intended drop-off is station-3 (order 3); moving to station-5
	// (order 5) is two extra stops regardless of what the caller sends.
	ticket, err := svc.VerifyTicket(ctx, service.VerifyTicketRequest{
		ConductorID:    "conductor-1",
		TicketCode:     "TKT-1",
		Action:         service.ActionChangeDropoff,
		NewStationID:   "station-5",
		AdditionalFare: 99.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(ticket.TotalFare-3.10) > 1e-9 {
		t.Errorf("expected fare 3.10 (2.50 + 2*0.30), got %f", ticket.TotalFare)
	}
}

func TestVerifier_RecomputedDeltaMovingCloserIsFree(t *testing.T) {
	t.Parallel()

	f := newVerifierFixture()
	svc := service.NewVerifierService(f.ticketRepo, f.sessionRepo, f.catalogRepo, f.wallet, service.NewRecomputedDelta(f.catalogRepo, 0.30), nil)
	ctx := context.Background()

	svc.VerifyTicket(ctx, service.VerifyTicketRequest{
		ConductorID: "conductor-1",
		TicketCode:  "TKT-1",
		Action:      service.ActionConfirmBoarding,
	})

	ticket, err := svc.VerifyTicket(ctx, service.VerifyTicketRequest{
		ConductorID:  "conductor-1",
		TicketCode:   "TKT-1",
		Action:       service.ActionChangeDropoff,
		NewStationID: "station-2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ticket.TotalFare != 2.50 {
		t.Errorf("moving closer must not change the fare, got %f", ticket.TotalFare)
	}
	if ticket.ActualDropoffStationID != "station-2" {
		t.Errorf("station must still change, got %s", ticket.ActualDropoffStationID)
	}
}

func TestVerifier_RecomputedDeltaAppliesPeakSurcharge(t *testing.T) {
	t.Parallel()

	catalog := NewMockCatalogRepository()
	for i, id := range []string{"station-1", "station-2", "station-3", "station-4", "station-5"} {
		catalog.AddStation(&domain.Station{StationID: id, RouteID: "route-1", OrderOnRoute: i + 1})
	}
	// An all-day surcharge keeps the test independent of wall-clock time.
	catalog.SetSurchargeRules("route-1", []fare.SurchargeRule{
		{Name: "event-day", StartMinute: 0, EndMinute: 24 * 60, Rate: 0.5},
	})

	ticket := newIssuedTicket("TKT-1", "route-1")
	policy := service.NewRecomputedDelta(catalog, 0.30)

	station, err := catalog.GetStation(context.Background(), "station-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	delta, err := policy.Delta(context.Background(), ticket, station, 0, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two extra stops at 0.30 each, plus the 50% surcharge: 0.90.
	if math.Abs(delta-0.90) > 1e-9 {
		t.Errorf("expected delta 0.90, got %f", delta)
	}
}
