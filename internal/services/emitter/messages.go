package emitter

import (
	"fmt"
	"strings"

	"github.com/NordCoder/safecode-crm/internal/domain/billing"
	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/NordCoder/safecode-crm/internal/domain/workobject"
)

func msgObjectCreated(creator string) string {
	return fmt.Sprintf("New object created by user %s", creator)
}

func msgWorkerAssigned(object string) string {
	return fmt.Sprintf("Object '%s' sent by administrator for review", object)
}

func msgSentForReview(object string, roles []user.Role) string {
	titles := make([]string, 0, len(roles))
	for _, r := range roles {
		titles = append(titles, r.Title())
	}
	return fmt.Sprintf("Your object '%s' was sent for review to roles: %s", object, strings.Join(titles, ", "))
}

func msgDocumentsUploaded(uploader string, role user.Role, object string) string {
	if role == "" {
		return fmt.Sprintf("User %s checked object '%s' and uploaded documents", uploader, object)
	}
	return fmt.Sprintf("User %s with role %s checked object '%s' and uploaded documents", uploader, role.Title(), object)
}

func msgBillCreated(creator, object string) string {
	return fmt.Sprintf("User %s created a bill for object '%s'", creator, object)
}

func msgJournalCreated(creator string, self bool, t billing.JournalType, object string) string {
	if self {
		return fmt.Sprintf("You added %s for object '%s'", withArticle(string(t)), object)
	}
	return fmt.Sprintf("User %s added %s for object '%s'", creator, withArticle(string(t)), object)
}

func withArticle(noun string) string {
	if noun != "" && strings.ContainsRune("aeiou", rune(noun[0])) {
		return "an " + noun
	}
	return "a " + noun
}

func msgServicePurchased(buyer, service string) string {
	return fmt.Sprintf("User %s purchased service '%s'", buyer, service)
}

func msgStatusChanged(object string, from, to workobject.Status) string {
	return fmt.Sprintf("Status of object '%s' changed from %s to %s", object, from, to)
}

func msgServiceExpiring(service string, days int) string {
	return fmt.Sprintf("Service '%s' expires in %d days. Please renew it.", service, days)
}

const (
	subjectPurchase = "New service purchase"
	subjectExpiry   = "Reminder: service term expiring"
)

func emailPurchaseBody(buyer *user.User, service string) string {
	return fmt.Sprintf("User %s (%s) purchased service '%s'.", buyer.DisplayName(), buyer.Email, service)
}

// ExpiryEmail renders the reminder email sent alongside the in-app row.
func ExpiryEmail(u *user.User, service string, days int) (subject, body string) {
	body = fmt.Sprintf("Hello, %s!\n\nService '%s' expires in %d days. Please check it and renew if needed.",
		u.DisplayName(), service, days)
	return subjectExpiry, body
}
