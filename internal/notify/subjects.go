package notify

const (
	subjectOfferSentFmt          = "Nuova offerta per %s"
	subjectOfferAcceptedFmt      = "Conferma accettazione offerta - %s"
	subjectOfferAcceptedAdminFmt = "Offerta accettata da %s - %s"
	subjectOfferDeclinedAdminFmt = "Offerta rifiutata da %s - %s"
	subjectOfferRevokedFmt       = "Offerta revocata - %s"
	subjectPaymentDetailsFmt     = "Dati di pagamento - %s"
	subjectBookingConfirmedFmt   = "Prenotazione confermata - %s"
	subjectRequestRejectedFmt    = "Richiesta di preventivo respinta - %s"
)
