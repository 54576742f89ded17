package notify

import (
	"fmt"
	"strings"

	"barbershop/reservation"
)

// ConfirmationEmail builds the message sent after a reservation is stored.
// cancelURL is included for guest bookings and ignored when empty.
func ConfirmationEmail(to, toName string, r reservation.Reservation, providerName, cancelURL string) EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", greetingName(toName))
	fmt.Fprintf(&b, "Your reservation is confirmed.\n\n")
	fmt.Fprintf(&b, "Service: %s\n", r.ServiceName)
	fmt.Fprintf(&b, "Barber: %s\n", providerName)
	fmt.Fprintf(&b, "When: %s at %s\n", r.Date, r.Time)
	fmt.Fprintf(&b, "Price: %s\n", FormatPrice(r.Price))
	if cancelURL != "" {
		fmt.Fprintf(&b, "\nCan't make it? Cancel here: %s\n", cancelURL)
	}

	return EmailMessage{
		To:      to,
		ToName:  toName,
		Subject: fmt.Sprintf("Reservation confirmed for %s at %s", r.Date, r.Time),
		Body:    b.String(),
	}
}

// FormatPrice renders cents as euros, e.g. 1500 -> "€15.00".
func FormatPrice(cents int64) string {
	return fmt.Sprintf("€%d.%02d", cents/100, cents%100)
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}
