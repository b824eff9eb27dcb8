package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kswpuk/portal-api/config"
	"github.com/kswpuk/portal-api/internal/member"
	"github.com/kswpuk/portal-api/utils"
)

// reminderLeadDays is how far before expiry the renewal reminder goes out
const reminderLeadDays = 28

// MembershipSweep reminds members whose membership expires in four weeks and
// lapses those whose expiry has passed.
type MembershipSweep struct {
	members member.Repository
	cfg     *config.Config
}

func NewMembershipSweep(members member.Repository, cfg *config.Config) *MembershipSweep {
	return &MembershipSweep{members: members, cfg: cfg}
}

func (s *MembershipSweep) Run(ctx context.Context) error {
	today := time.Now()

	if err := s.remindExpiring(ctx, today); err != nil {
		return err
	}
	return s.lapseExpired(ctx, today)
}

// remindExpiring mails members whose expiry lands exactly on the reminder
// day, so each member is reminded once per renewal cycle.
func (s *MembershipSweep) remindExpiring(ctx context.Context, today time.Time) error {
	day := today.AddDate(0, 0, reminderLeadDays)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1).Add(-time.Second)

	expiring, err := s.members.ExpiringBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list expiring members: %w", err)
	}

	log.Printf("%d members expire on %s and will be sent a reminder", len(expiring), from.Format("2006-01-02"))

	for i := range expiring {
		m := &expiring[i]
		subject := "Your KSWP membership expires soon"
		body := fmt.Sprintf(`Hi %s,

Your KSWP membership expires on %s. To keep volunteering with us, please renew at https://%s before then.

If you have any questions, please reply to this e-mail.

The KSWP Portal`, m.DisplayName(), m.MembershipExpires.Format("2006-01-02"), s.cfg.PortalDomain)

		if err := utils.SendEmail(m.Email, s.cfg.MembersEmail, subject, body); err != nil {
			log.Printf("❌ Unable to send expiry reminder to %s: %v", m.MembershipNumber, err)
		}
	}

	return nil
}

// lapseExpired sets ACTIVE members past their expiry to INACTIVE and lets
// them know.
func (s *MembershipSweep) lapseExpired(ctx context.Context, today time.Time) error {
	startOfToday := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	expired, err := s.members.ExpiringBetween(ctx, time.Time{}, startOfToday.Add(-time.Second))
	if err != nil {
		return fmt.Errorf("list expired members: %w", err)
	}

	log.Printf("%d members expired before %s and will be set to INACTIVE", len(expired), startOfToday.Format("2006-01-02"))

	for i := range expired {
		m := &expired[i]
		log.Printf("Member %s (%s) expired on %s", m.MembershipNumber, m.DisplayName(), m.MembershipExpires.Format("2006-01-02"))

		if err := s.members.SetStatus(ctx, m.MembershipNumber, member.StatusInactive); err != nil {
			log.Printf("❌ Unable to lapse member %s: %v", m.MembershipNumber, err)
			continue
		}

		subject := "Your KSWP membership has expired"
		body := fmt.Sprintf(`Hi %s,

Your KSWP membership expired on %s, so your account has been set to inactive. You can renew at any time at https://%s to start volunteering with us again.

If you have any questions, please reply to this e-mail.

The KSWP Portal`, m.DisplayName(), m.MembershipExpires.Format("2006-01-02"), s.cfg.PortalDomain)

		if err := utils.SendEmail(m.Email, s.cfg.MembersEmail, subject, body); err != nil {
			log.Printf("❌ Unable to send expiry notice to %s: %v", m.MembershipNumber, err)
		}
	}

	return nil
}
