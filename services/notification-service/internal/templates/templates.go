package templates

import "fmt"

// Plain-text email bodies. Subjects and copy match what the product
// shows in-app.

func InviteCreated(inviterName, scheduled string) (subject, body string) {
	subject = "You have a new date invite"
	body = fmt.Sprintf("%s invited you on a date", displayOrSomeone(inviterName))
	if scheduled != "" {
		body += fmt.Sprintf(" on %s", scheduled)
	}
	body += ".\n\nOpen DANA to accept or decline. A £5 deposit is held from each of you until the date happens."
	return subject, body
}

func InviteConfirmed(otherName, scheduled, promoCode string) (subject, body string) {
	subject = "Your date is confirmed"
	body = fmt.Sprintf("Your date with %s is confirmed", displayOrSomeone(otherName))
	if scheduled != "" {
		body += fmt.Sprintf(" for %s", scheduled)
	}
	body += "."
	if promoCode != "" {
		body += fmt.Sprintf("\n\nHere is a £10 promo code for the two of you: %s\nIt expires 30 minutes from now.", promoCode)
	}
	return subject, body
}

func InviteDeclined(reason string) (subject, body string) {
	subject = "Your date invite was declined"
	body = "Your invite was declined and your £5 deposit has been returned to your wallet."
	if reason != "" {
		body += fmt.Sprintf("\n\nReason: %s", reason)
	}
	return subject, body
}

func InviteCancelled(refundMessage string) (subject, body string) {
	subject = "Your date was cancelled"
	body = "Your date has been cancelled."
	if refundMessage != "" {
		body += "\n\n" + refundMessage
	}
	return subject, body
}

func MeetingRequested(senderName, intent string) (subject, body string) {
	subject = "New meeting request"
	body = fmt.Sprintf("%s sent you a %s meeting request.\n\nOpen DANA to respond.", displayOrSomeone(senderName), intentLabel(intent))
	return subject, body
}

func MeetingAccepted(receiverName string) (subject, body string) {
	subject = "Meeting request accepted"
	body = fmt.Sprintf("%s accepted your meeting request.", displayOrSomeone(receiverName))
	return subject, body
}

func MeetingDeclined(receiverName string) (subject, body string) {
	subject = "Meeting request declined"
	body = fmt.Sprintf("%s declined your meeting request.", displayOrSomeone(receiverName))
	return subject, body
}

func displayOrSomeone(name string) string {
	if name == "" {
		return "Someone"
	}
	return name
}

func intentLabel(intent string) string {
	switch intent {
	case "business_mentorship":
		return "mentorship"
	case "business_investing":
		return "investing"
	case "business_networking":
		return "networking"
	default:
		return "social"
	}
}
