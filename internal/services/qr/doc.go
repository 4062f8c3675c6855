/*
Package qr issues and redeems single-use QR tokens.

A token is a compact signed string that names one reference entity (an
order, the payment of an order, or a reservation) and one action to apply
to it. The service handles:
- Issuance against entities in an eligible state
- Read-only validation
- Redemption with an at-most-once guarantee
- Revocation and listing by reference
- Purging of long-expired records

Usage:

	codec, err := qr.NewCodec(secret)

	svc := qr.NewService(qr.Deps{
	    Store:    store,
	    Codec:    codec,
	    Lookup:   lookup,
	    Handlers: qr.NewHandlers(lookup, orders, reservations),
	})

	// Issue a payment token for an order
	issued, err := svc.Issue(ctx, domainQR.IssueRequest{
	    Type:        "payment",
	    ReferenceID: orderID,
	    Actor:       cashier,
	})

	// Redeem it
	result, err := svc.Redeem(ctx, qr.RedeemRequest{Token: issued.Token, Actor: cashier})

Redemption:

The Coordinator is the only component that marks a token used. It decodes
and verifies the string, checks the actor, then claims the record through
TokenStore.Claim, a single conditional write. Of any number of concurrent
redeems of one token exactly one claim succeeds; the rest observe
ErrQRAlreadyUsed. The action handler runs only after a successful claim. A
handler failure leaves the token used and is reported as ErrActionFailed
together with the result.

Error Handling:

Every failure is a *errors.DomainError with a stable code:
- ErrMalformedToken: bad encoding or signature, or fields that do not match the record
- ErrTokenNotFound / ErrReferenceNotFound
- ErrInvalidQRType, ErrInvalidState, ErrInvalidRequest
- ErrQRExpired, ErrQRAlreadyUsed, ErrQRRevoked
- ErrUnauthorized
- ErrActionFailed

Cache Management:

CachedStore fronts Get with a short-lived cache. Claims always go to the
underlying store.
*/
package qr
