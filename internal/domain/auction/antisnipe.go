package auction

import "time"

// Default anti-snipe parameters: a bid landing within the last two
// minutes pushes the close out to two minutes after the bid.
const (
	DefaultSnipeWindow    = 2 * time.Minute
	DefaultSnipeExtension = 2 * time.Minute
)

// MaybeExtend returns the auction end after applying the anti-snipe
// rule to a bid accepted at acceptedAt. When the bid lands within
// window of the scheduled end, the end moves to acceptedAt+extension,
// never backwards. Every accepted bid therefore leaves at least
// the window of bidding time on the clock.
func MaybeExtend(auctionEnd, acceptedAt time.Time, window, extension time.Duration) time.Time {
	if auctionEnd.Sub(acceptedAt) > window {
		return auctionEnd
	}

	extended := acceptedAt.Add(extension)
	if extended.After(auctionEnd) {
		return extended
	}
	return auctionEnd
}
