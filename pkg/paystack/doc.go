// Package paystack is the Paystack implementation of cashier.Gateway.
//
//	cfg, err := config.Load[paystack.Config]()
//	if err != nil {
//		return err
//	}
//	client, err := paystack.New(cfg)
//
// Every call sends the secret key as a bearer token and decodes the
// {status, message, data} envelope. A response with status false is
// returned as is for the caller to classify; errors mean the request did
// not complete or the body was not JSON.
package paystack
