package portal

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/auth"
	"github.com/crmdesk/crm-service/internal/config"
	"github.com/crmdesk/crm-service/internal/domain"
	"github.com/crmdesk/crm-service/internal/repository"
	apperrors "github.com/crmdesk/crm-service/pkg/util/errorutil"
)

const codeDigits = 6

// CodeSender delivers a one-time code to a contact.
type CodeSender interface {
	SendCode(ctx context.Context, contact *domain.Contact, code string) error
}

// LogSender writes codes to the log. It stands in for a mail provider in
// development.
type LogSender struct {
	Logger *zap.Logger
}

// SendCode logs the code against the contact id.
func (s LogSender) SendCode(_ context.Context, contact *domain.Contact, code string) error {
	s.Logger.Info("portal login code issued", zap.String("contact_id", contact.ID), zap.String("code", code))
	return nil
}

// Service runs the portal sign-in flow.
type Service struct {
	store      Store
	customers  repository.CustomerRepository
	sender     CodeSender
	codeTTL    time.Duration
	sessionTTL time.Duration
	maxTries   int
	maxIssued  int
	window     time.Duration
	cost       int
	logger     *zap.Logger
	now        func() time.Time
	newCode    func() (string, error)
}

// NewService builds the sign-in service. bcryptCost hashes stored codes.
func NewService(store Store, customers repository.CustomerRepository, sender CodeSender, cfg config.PortalConfig, bcryptCost int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTries := cfg.MaxCodeAttempts
	if maxTries <= 0 {
		maxTries = 5
	}
	maxIssued := cfg.MaxCodeRequests
	if maxIssued <= 0 {
		maxIssued = 5
	}
	return &Service{
		store:      store,
		customers:  customers,
		sender:     sender,
		codeTTL:    minutes(cfg.CodeTTLMinutes, 10),
		sessionTTL: minutes(cfg.SessionTTLMinutes, 30),
		maxTries:   maxTries,
		maxIssued:  maxIssued,
		window:     minutes(cfg.CodeWindowMinutes, 60),
		cost:       bcryptCost,
		logger:     logger,
		now:        time.Now,
		newCode:    randomCode,
	}
}

func minutes(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Minute
}

func randomCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var errInvalidCode = apperrors.NewUnauthorized("invalid or expired code")

// RequestCode issues a code for email. Unknown addresses succeed silently so
// the endpoint does not reveal which emails belong to customers. Each address gets a
// bounded number of codes per window, counted before the contact lookup so
// known and unknown addresses are throttled alike.
func (s *Service) RequestCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.NewValidationError("email is required", nil)
	}
	issued, err := s.store.CountIssued(ctx, email, s.window)
	if err != nil {
		return apperrors.NewUnavailable(apperrors.CodeSessionStoreDown, "try again later", err)
	}
	if issued > s.maxIssued {
		s.logger.Warn("portal code requests throttled", zap.Int("issued", issued))
		return apperrors.NewRateLimited("too many code requests, try again later")
	}
	contact, err := s.customers.GetContactByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Debug("portal code requested for unknown email")
		return nil
	}
	if err != nil {
		return apperrors.MapError(err)
	}

	code, err := s.newCode()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	hash, err := auth.HashPassword(code, s.cost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.store.SaveCode(ctx, email, hash, s.codeTTL); err != nil {
		return apperrors.NewUnavailable(apperrors.CodeSessionStoreDown, "try again later", err)
	}
	if err := s.sender.SendCode(ctx, contact, code); err != nil {
		s.logger.Error("portal code delivery failed", zap.String("contact_id", contact.ID), zap.Error(err))
		return apperrors.NewUnavailable(apperrors.CodeDeliveryFailed, "could not send code", err)
	}
	return nil
}

// VerifyCode exchanges a valid code for a new session. A code is burned
// after use or once it has been guessed wrong too many times.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (*domain.PortalSession, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, apperrors.NewValidationError("email and code are required", nil)
	}

	hash, attempts, err := s.store.LoadCode(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, errInvalidCode
	}
	if err != nil {
		return nil, apperrors.NewUnavailable(apperrors.CodeSessionStoreDown, "try again later", err)
	}
	if attempts >= s.maxTries {
		_ = s.store.DeleteCode(ctx, email)
		return nil, errInvalidCode
	}

	if auth.ComparePassword(hash, code) != nil {
		n, err := s.store.IncrAttempts(ctx, email)
		if err == nil && n >= s.maxTries {
			_ = s.store.DeleteCode(ctx, email)
		}
		return nil, errInvalidCode
	}
	_ = s.store.DeleteCode(ctx, email)

	contact, err := s.customers.GetContactByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "contact", email)
	}

	now := s.now().UTC()
	session := domain.PortalSession{
		ID:        ulid.Make().String(),
		ContactID: contact.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.SaveSession(ctx, session, s.sessionTTL); err != nil {
		return nil, apperrors.NewUnavailable(apperrors.CodeSessionStoreDown, "try again later", err)
	}
	s.logger.Info("portal session opened", zap.String("contact_id", contact.ID))
	return &session, nil
}

// Session resolves a live session.
func (s *Service) Session(ctx context.Context, id string) (*domain.PortalSession, error) {
	session, err := s.store.LoadSession(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewUnauthorized("session expired")
	}
	if err != nil {
		return nil, apperrors.NewUnavailable(apperrors.CodeSessionStoreDown, "try again later", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		_ = s.store.DeleteSession(ctx, id)
		return nil, apperrors.NewUnauthorized("session expired")
	}
	return session, nil
}

// Logout ends a session. Ending an unknown session is not an error.
func (s *Service) Logout(ctx context.Context, id string) error {
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return apperrors.NewUnavailable(apperrors.CodeSessionStoreDown, "try again later", err)
	}
	return nil
}

var _ auth.SessionLookup = (*Service)(nil)
