package lending

import (
	"context"
	"iter"
	"math"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

const day = 24 * time.Hour

// Notices yields a reminder for every open loan in loans that is overdue at
// now or falls due within window. Overdue loans report how many days late
// they are, the rest how many days remain, both rounded up. The sequence
// reads only its arguments and can be ranged over any number of times.
func Notices(loans []model.Loan, now time.Time, window time.Duration) iter.Seq[model.Notification] {
	return func(yield func(model.Notification) bool) {
		for _, l := range loans {
			if !l.Open() {
				continue
			}

			n := model.Notification{
				LoanID: l.ID,
				BookID: l.BookID,
				CopyID: l.CopyID,
				Title:  l.Title,
				DueAt:  l.DueAt,
			}

			switch left := l.DueAt.Sub(now); {
			case left < 0:
				n.Overdue = true
				n.DaysDelta = ceilDays(-left)
			case left <= window:
				n.DaysDelta = ceilDays(left)
			default:
				continue
			}

			if !yield(n) {
				return
			}
		}
	}
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(day)))
}

// ListNotifications returns the borrower's reminders at the current time.
func (s *Service) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	loans, err := s.openLoans(ctx, userID)
	if err != nil {
		return nil, err
	}

	notices := []model.Notification{}
	for n := range Notices(loans, s.clock.Now(), s.policy.ReminderWindow) {
		notices = append(notices, n)
	}
	return notices, nil
}
