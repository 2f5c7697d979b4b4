//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session.go -package=mocks
package bot

import (
	"context"

	"github.com/EgorLis/cmdbot/internal/extension"
	"github.com/EgorLis/cmdbot/internal/gateway"
)

// Session — то, что бот использует от gateway.Client.
type Session interface {
	Bind(h gateway.Handlers)
	Connect(ctx context.Context) error
	Disconnect()
	Fatal() <-chan error
	SendMessage(channelID, text string) error
}

// Scanner — загрузчик расширений (extension.Loader).
type Scanner interface {
	LoadAll(ctx context.Context, host extension.Host) (extension.Report, error)
	Report() extension.Report
}
