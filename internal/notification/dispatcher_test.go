package notification_test

//go:generate mockgen -source=message.go -destination=mocks/mocks.go -package=mocks Sender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"volid/internal/notification"
	"volid/internal/notification/mocks"
)

type DispatcherSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	sender *mocks.MockSender
	logger *slog.Logger
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.sender = mocks.NewMockSender(s.ctrl)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *DispatcherSuite) TearDownTest() {
	s.ctrl.Finish()
}

func approval(id string) notification.Message {
	return notification.Message{
		Kind:        notification.KindVolunteerApproved,
		RecordID:    id,
		To:          "volunteer@example.org",
		VolunteerID: "VOL0503261234",
		Status:      "active",
	}
}

func (s *DispatcherSuite) runDispatcher(d *notification.Dispatcher) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()
	return cancel, done
}

func (s *DispatcherSuite) TestDeliversQueuedMessages() {
	delivered := make(chan string, 2)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg notification.Message) error {
			delivered <- msg.RecordID
			return nil
		}).Times(2)

	d := notification.NewDispatcher(s.sender, notification.WithLogger(s.logger), notification.WithWorkers(2))
	cancel, done := s.runDispatcher(d)

	s.True(d.Enqueue(context.Background(), approval("rec-1")))
	s.True(d.Enqueue(context.Background(), approval("rec-2")))

	got := map[string]bool{}
	for range 2 {
		select {
		case id := <-delivered:
			got[id] = true
		case <-time.After(2 * time.Second):
			s.FailNow("message not delivered")
		}
	}
	s.Equal(map[string]bool{"rec-1": true, "rec-2": true}, got)

	cancel()
	s.NoError(<-done)
}

func (s *DispatcherSuite) TestRetriesDeliveryErrors() {
	delivered := make(chan struct{})
	gomock.InOrder(
		s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("broker unavailable")),
		s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, notification.Message) error {
				close(delivered)
				return nil
			}),
	)

	d := notification.NewDispatcher(s.sender, notification.WithLogger(s.logger), notification.WithWorkers(1))
	cancel, done := s.runDispatcher(d)
	s.True(d.Enqueue(context.Background(), approval("rec-1")))

	select {
	case <-delivered:
	case <-time.After(3 * time.Second):
		s.FailNow("retry did not happen")
	}
	cancel()
	s.NoError(<-done)
}

func (s *DispatcherSuite) TestGivesUpAfterMaxAttempts() {
	var calls int
	finished := make(chan struct{})
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, notification.Message) error {
			calls++
			if calls == 2 {
				close(finished)
			}
			return errors.New("mailbox full")
		}).Times(2)

	d := notification.NewDispatcher(s.sender,
		notification.WithLogger(s.logger),
		notification.WithWorkers(1),
		notification.WithMaxAttempts(2),
	)
	cancel, done := s.runDispatcher(d)
	s.True(d.Enqueue(context.Background(), approval("rec-1")))

	select {
	case <-finished:
	case <-time.After(3 * time.Second):
		s.FailNow("sender not retried")
	}
	cancel()
	s.NoError(<-done)
}

func (s *DispatcherSuite) TestEnqueueNeverBlocksWhenFull() {
	d := notification.NewDispatcher(s.sender, notification.WithLogger(s.logger), notification.WithQueueSize(1))

	s.True(d.Enqueue(context.Background(), approval("rec-1")))
	s.False(d.Enqueue(context.Background(), approval("rec-2")))
}

func (s *DispatcherSuite) TestDrainsQueueOnShutdownAndRefusesNewWork() {
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	d := notification.NewDispatcher(s.sender, notification.WithLogger(s.logger))
	s.True(d.Enqueue(context.Background(), approval("rec-1")))
	s.True(d.Enqueue(context.Background(), approval("rec-2")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.NoError(d.Run(ctx))

	s.False(d.Enqueue(context.Background(), approval("rec-3")))
}

func (s *DispatcherSuite) TestDrainStopsAtWindowAndBoundsSends() {
	const window = 100 * time.Millisecond
	gate := make(chan struct{})
	started := make(chan struct{})

	var (
		mu        sync.Mutex
		sent      []string
		remaining time.Duration
	)
	s.sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, msg notification.Message) error {
			mu.Lock()
			sent = append(sent, msg.RecordID)
			mu.Unlock()
			if msg.RecordID == "rec-1" {
				close(started)
				<-gate
				return nil
			}
			if deadline, ok := ctx.Deadline(); ok {
				mu.Lock()
				remaining = time.Until(deadline)
				mu.Unlock()
			}
			<-ctx.Done()
			return ctx.Err()
		}).Times(2)

	d := notification.NewDispatcher(s.sender,
		notification.WithLogger(s.logger),
		notification.WithWorkers(1),
		notification.WithMaxAttempts(1),
		notification.WithSendTimeout(5*time.Second),
		notification.WithDrainWindow(window),
	)
	cancel, done := s.runDispatcher(d)

	s.True(d.Enqueue(context.Background(), approval("rec-1")))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		s.FailNow("worker did not pick up the first message")
	}
	s.True(d.Enqueue(context.Background(), approval("rec-2")))
	s.True(d.Enqueue(context.Background(), approval("rec-3")))

	cancel()
	start := time.Now()
	close(gate)

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.FailNow("drain ran past its window")
	}
	s.Less(time.Since(start), time.Second)

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]string{"rec-1", "rec-2"}, sent)
	s.Greater(remaining, time.Duration(0))
	s.LessOrEqual(remaining, window)
	s.False(d.Enqueue(context.Background(), approval("rec-4")))
}
