// Package mail defines the contract for sending email and its implementations.
//
// Use cases depend on the Mail interface and the Message payload. SMTP delivers
// over net/smtp with STARTTLS or implicit TLS; Log writes the message to the
// application log instead of sending it, for suppressed environments.
package mail
