package handlers

//go:generate mockgen -source=handlers.go -destination=mock_handlers.go -package=handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/GlebRadaev/wholesale/docs"
	audithandlers "github.com/GlebRadaev/wholesale/internal/handlers/audit"
	authhandlers "github.com/GlebRadaev/wholesale/internal/handlers/auth"
	invoicehandlers "github.com/GlebRadaev/wholesale/internal/handlers/invoices"
	ordershandlers "github.com/GlebRadaev/wholesale/internal/handlers/orders"
	paymenthandlers "github.com/GlebRadaev/wholesale/internal/handlers/payments"
	"github.com/GlebRadaev/wholesale/internal/metrics"
	"github.com/GlebRadaev/wholesale/internal/service"
	"github.com/GlebRadaev/wholesale/pkg/auth"
)

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type OrderHandler interface {
	GetOrders(w http.ResponseWriter, r *http.Request)
	GetOrder(w http.ResponseWriter, r *http.Request)
	UpdateOrder(w http.ResponseWriter, r *http.Request)
}

type InvoiceHandler interface {
	GetInvoice(w http.ResponseWriter, r *http.Request)
}

type PaymentHandler interface {
	ExchangeToken(w http.ResponseWriter, r *http.Request)
	GetFundingSources(w http.ResponseWriter, r *http.Request)
	RemoveFundingSource(w http.ResponseWriter, r *http.Request)
	Transfer(w http.ResponseWriter, r *http.Request)
}

type AuditHandler interface {
	GetEntries(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler    AuthHandler
	OrderHandler   OrderHandler
	InvoiceHandler InvoiceHandler
	PaymentHandler PaymentHandler
	AuditHandler   AuditHandler

	jwt auth.JWTServiceInterface
}

func New(s *service.Services) *Handlers {
	return &Handlers{
		AuthHandler:    authhandlers.New(s.AuthService),
		OrderHandler:   ordershandlers.New(s.OrderService),
		InvoiceHandler: invoicehandlers.New(s.InvoiceService),
		PaymentHandler: paymenthandlers.New(s.FundingService, s.TransferService),
		AuditHandler:   audithandlers.New(s.AuditService),
		jwt:            s.JWTService,
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		metrics.Middleware,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.AuthHandler.Register)
		r.Post("/user/login", h.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.jwt))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.OrderHandler.GetOrders)
				r.Get("/{id}", h.OrderHandler.GetOrder)
				r.Put("/{id}", h.OrderHandler.UpdateOrder)
			})
			r.Get("/invoices/{number}", h.InvoiceHandler.GetInvoice)
			r.Route("/payments", func(r chi.Router) {
				r.Post("/link/exchange-token", h.PaymentHandler.ExchangeToken)
				r.Get("/funding-sources", h.PaymentHandler.GetFundingSources)
				r.Delete("/funding-sources/{id}", h.PaymentHandler.RemoveFundingSource)
				r.Post("/transfer", h.PaymentHandler.Transfer)
			})
			r.Get("/audit/{entityType}/{entityId}", h.AuditHandler.GetEntries)
		})
	})

	return r
}
