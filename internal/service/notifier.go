package service

import (
	"github.com/google/uuid"

	"github.com/gigboard/gig-backend/internal/logger"
)

// Notifier отправляет событие пользователю (WebSocket + запись в БД).
// В обработчиках сделок реализацией служит ws.Hub.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// notify отправляет событие и глотает ошибку доставки: уведомления не должны
// ломать основную операцию.
func notify(n Notifier, userID uuid.UUID, event string, data any) {
	if n == nil {
		return
	}
	if err := n.BroadcastToUser(userID, event, data); err != nil && logger.Log != nil {
		logger.Log.WithFields(map[string]interface{}{
			"user_id": userID,
			"event":   event,
			"error":   err.Error(),
		}).Warn("не удалось отправить уведомление")
	}
}
