package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"exchangeapi/src/auth"
	"exchangeapi/src/connectors"
	"exchangeapi/src/database"
	"exchangeapi/src/handler"
	"exchangeapi/src/ledger"
	"exchangeapi/src/model"
	"exchangeapi/src/repository"
)

func StartServer(port string) {
	orders := repository.NewOrderRepository()
	transactions := repository.NewTransactionRepository()
	users := repository.NewUserRepository()
	rates := repository.NewRateRepository()
	ratesClient := connectors.NewRatesClient(connectors.GetConfig())

	service := ledger.NewService(database.MainDB, ledger.GetConfig())

	// Router with middleware
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("\"/healthcheck\" error")
		}
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(users))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", handler.SearchOrdersHandler(orders))
			r.Get("/{id}", handler.GetOrderHandler(orders))

			r.With(auth.RequireRoles(model.RoleSeller)).
				Post("/", handler.CreateOrderHandler(service))
			r.With(auth.RequireRoles(model.RoleSeller, model.RoleAdmin)).
				Delete("/{id}", handler.DeleteOrderHandler(service))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", handler.SearchTransactionsHandler(transactions))
			r.Get("/{id}", handler.GetTransactionHandler(transactions))

			r.With(auth.RequireRoles(model.RoleBuyer, model.RoleAdmin)).
				Post("/", handler.CreateTransactionHandler(service))
			r.Patch("/{id}/cancel", handler.CancelTransactionHandler(service))

			r.With(auth.RequireRoles(model.RoleAdmin)).
				Post("/{id}/settle", handler.SettleTransactionHandler(service))
			r.With(auth.RequireRoles(model.RoleAdmin)).
				Patch("/{id}/status", handler.UpdateTransactionStatusHandler(service))
		})

		r.Get("/rates", handler.GetReferenceRateHandler(rates, ratesClient))
		r.Get("/ws/market", handler.MarketFeedHandler(transactions))

		r.Patch("/users/me", handler.UpdateUserHandler(users))
		r.Post("/users/password", handler.ChangePasswordHandler(users))
	})

	// Graceful server
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
