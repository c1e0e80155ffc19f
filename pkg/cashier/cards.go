package cashier

import (
	"context"
	"errors"

	"github.com/dmitrymomot/cashier/pkg/logger"
)

// Card is a reusable card authorization of a customer.
type Card struct {
	AuthorizationCode string
	Brand             string
	CardType          string
	Last4             string
	ExpMonth          string
	ExpYear           string
	Bank              string
	Reusable          bool
}

func cardFromAuthorization(a Authorization) Card {
	return Card{
		AuthorizationCode: a.AuthorizationCode,
		Brand:             a.Brand,
		CardType:          a.CardType,
		Last4:             a.Last4,
		ExpMonth:          a.ExpMonth,
		ExpYear:           a.ExpYear,
		Bank:              a.Bank,
		Reusable:          a.Reusable,
	}
}

// Cards lists the card authorizations stored at the gateway for c.
func (b *Billable) Cards(ctx context.Context, c *Customer) ([]Card, error) {
	gc, err := b.AsGatewayCustomer(ctx, c)
	if err != nil {
		return nil, err
	}

	cards := make([]Card, 0, len(gc.Authorizations))
	for _, a := range gc.Authorizations {
		if a.Channel == "card" {
			cards = append(cards, cardFromAuthorization(a))
		}
	}
	return cards, nil
}

// DeleteCards deactivates every card authorization of c. It stops at the
// first failure.
func (b *Billable) DeleteCards(ctx context.Context, c *Customer) error {
	cards, err := b.Cards(ctx, c)
	if err != nil {
		return err
	}

	for _, card := range cards {
		resp, err := b.gateway.DeactivateAuthorization(ctx, Payload{"authorization_code": card.AuthorizationCode})
		if err != nil {
			return errors.Join(ErrGatewayRequestFailed, err)
		}
		if !resp.Status {
			return newGatewayError(ErrGatewayRequestFailed, resp)
		}
		b.log.InfoContext(ctx, "card deactivated",
			logger.OwnerID(c.ID.String()),
			logger.CardLastFour(card.Last4),
		)
	}
	return nil
}
