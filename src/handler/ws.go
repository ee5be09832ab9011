package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"exchangeapi/src/auth"
	"exchangeapi/src/repository"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// marketFeedInterval is how often connected clients receive a fresh
// snapshot of recent transactions.
const marketFeedInterval = 2 * time.Second

// MarketFeedHandler upgrades the connection and streams periodic snapshots
// of the caller's recent transactions (all transactions for admins).
// Contact data is redacted the same way as on the REST listing.
func MarketFeedHandler(repo transactionSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		// Drain control frames so pings and close messages are processed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		options := repository.TransactionSearchOptions{
			SortField: "created_at",
			SortOrder: "desc",
			Limit:     20,
		}
		if !user.IsAdmin() {
			userID := user.ID
			options.UserID = &userID
		}

		ticker := time.NewTicker(marketFeedInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				transactions, total, err := repo.Search(r.Context(), options)
				if err != nil {
					logger.WithError(err).Error("market feed query failed")
					return
				}

				if !user.IsAdmin() {
					for i := range transactions {
						transactions[i].Redact()
					}
				}

				if err := conn.WriteJSON(ListResponse{Data: transactions, Total: total}); err != nil {
					return
				}
			}
		}
	}
}
