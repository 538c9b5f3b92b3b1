package notifiers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/config"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	texts []string
}

func (r *recordingNotifier) Send(_ context.Context, _ *model.Session, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func TestNewDispatcher_DevelopmentLogsEverything(t *testing.T) {
	logger := zerolog.Nop()
	cfg := &config.Config{}
	cfg.Notifiers.Mode = "development"
	cfg.Notifiers.Email.Host = "smtp.example.com"

	d, err := NewDispatcher(cfg, &logger)
	require.NoError(t, err)

	for _, ch := range []model.Channel{model.ChannelLog, model.ChannelEmail, model.ChannelTelegram} {
		assert.IsType(t, &LogNotifier{}, d.notifiers[ch], "channel %s", ch)
	}
}

func TestNewDispatcher_ProductionEmail(t *testing.T) {
	logger := zerolog.Nop()
	cfg := &config.Config{}
	cfg.Notifiers.Mode = ModeProduction
	cfg.Notifiers.Email.Host = "smtp.example.com"

	d, err := NewDispatcher(cfg, &logger)
	require.NoError(t, err)

	assert.IsType(t, &EmailNotifier{}, d.notifiers[model.ChannelEmail])
	assert.IsType(t, &LogNotifier{}, d.notifiers[model.ChannelTelegram], "no bot token keeps the log fallback")
}

func TestDispatcher_Send(t *testing.T) {
	logger := zerolog.Nop()
	email, tg := &recordingNotifier{}, &recordingNotifier{}
	d := &Dispatcher{
		notifiers: map[model.Channel]Notifier{
			model.ChannelEmail:    email,
			model.ChannelTelegram: tg,
		},
		logger: logger,
	}
	ctx := context.Background()

	require.NoError(t, d.Send(ctx, &model.Session{UserID: uuid.New(), Channel: model.ChannelTelegram}, "hello"))
	assert.Equal(t, []string{"hello"}, tg.texts)
	assert.Empty(t, email.texts)

	err := d.Send(ctx, &model.Session{UserID: uuid.New(), Channel: "sms"}, "hello")
	assert.Error(t, err)
}

func TestEmailNotifier_RejectsWrongChannel(t *testing.T) {
	logger := zerolog.Nop()
	n := NewEmailNotifier(config.EmailConfig{Host: "localhost", Port: 25}, &logger)

	err := n.Send(context.Background(), &model.Session{Channel: model.ChannelTelegram}, "hi")
	assert.Error(t, err)
}
