package main

import (
	"os"
	"time"

	"github.com/farmconnect/contracts-api/internal/middleware"
	"github.com/farmconnect/contracts-api/internal/services"
	"github.com/spf13/cobra"
)

func (a *app) registerUserCommand() *cobra.Command {
	return a.withInput(&cobra.Command{
		Use:   "register-user",
		Short: "Create or replace a directory record (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in services.UserInput
			if err := a.readInput(&in); err != nil {
				return err
			}
			user, err := a.svcs.User.Register(cmd.Context(), in, a.actor)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"user": user})
		},
	})
}

func (a *app) createContractCommand() *cobra.Command {
	return a.withInput(&cobra.Command{
		Use:   "create-contract",
		Short: "Create a direct contract, tender or draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in services.ContractInput
			if err := a.readInput(&in); err != nil {
				return err
			}
			contract, err := a.svcs.Contract.CreateContract(cmd.Context(), in, a.actor)
			if contract != nil {
				if perr := a.print(map[string]interface{}{"contract": contract}); perr != nil && err == nil {
					return perr
				}
			}
			return err
		},
	})
}

func (a *app) getContractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get-contract CONTRACT_ID",
		Short: "Show a contract with the bids visible to the actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := a.svcs.Contract.GetContract(cmd.Context(), args[0], a.actor)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"contract": contract})
		},
	}
}

func (a *app) publishCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish CONTRACT_ID",
		Short: "Publish a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := a.svcs.Contract.PublishContract(cmd.Context(), args[0], a.actor)
			if contract != nil {
				if perr := a.print(map[string]interface{}{"contract": contract}); perr != nil && err == nil {
					return perr
				}
			}
			return err
		},
	}
}

func (a *app) submitBidCommand() *cobra.Command {
	return a.withInput(&cobra.Command{
		Use:   "submit-bid CONTRACT_ID",
		Short: "Bid on an open tender",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in services.BidInput
			if err := a.readInput(&in); err != nil {
				return err
			}
			bid, err := a.svcs.Contract.SubmitBid(cmd.Context(), args[0], a.actor, in)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"bid": bid})
		},
	})
}

func (a *app) listBidsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-bids CONTRACT_ID",
		Short: "List the bids visible to the actor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bids, err := a.svcs.Contract.ListBids(cmd.Context(), args[0], a.actor)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"bids": bids, "total": len(bids)})
		},
	}
}

func (a *app) acceptBidCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "accept-bid CONTRACT_ID BID_ID",
		Short: "Award the tender to a bid and open the party chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := a.svcs.Contract.AcceptBid(cmd.Context(), args[0], args[1], a.actor)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"chatId": chatID})
		},
	}
}

func (a *app) rejectBidCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reject-bid CONTRACT_ID BID_ID",
		Short: "Reject a pending bid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bid, err := a.svcs.Contract.RejectBid(cmd.Context(), args[0], args[1], a.actor)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"bid": bid})
		},
	}
}

func (a *app) setStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status CONTRACT_ID STATUS",
		Short: "Move a contract to completed or cancelled",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := a.svcs.Contract.UpdateContractStatus(cmd.Context(), args[0], a.actor, args[1])
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"contract": contract})
		},
	}
}

func (a *app) addDeliveryCommand() *cobra.Command {
	return a.withInput(&cobra.Command{
		Use:   "add-delivery CONTRACT_ID",
		Short: "Record a delivery against a bilateral contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in services.DeliveryInput
			if err := a.readInput(&in); err != nil {
				return err
			}
			delivery, err := a.svcs.Ledger.AddDelivery(cmd.Context(), args[0], a.actor, in)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"delivery": delivery})
		},
	})
}

func (a *app) addPaymentCommand() *cobra.Command {
	return a.withInput(&cobra.Command{
		Use:   "add-payment CONTRACT_ID",
		Short: "Record a payment against a bilateral contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in services.PaymentInput
			if err := a.readInput(&in); err != nil {
				return err
			}
			payment, err := a.svcs.Ledger.AddPayment(cmd.Context(), args[0], a.actor, in)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"payment": payment})
		},
	})
}

func (a *app) summaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary CONTRACT_ID",
		Short: "Show progress and payment totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := a.svcs.Ledger.Summary(cmd.Context(), args[0], a.actor)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"summary": summary})
		},
	}
}

func (a *app) expireTendersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "expire-tenders",
		Short: "Expire every tender whose bidding window has closed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			expired, err := a.svcs.Job.ExpireTendersNow(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"expired": expired})
		},
	}
}

func (a *app) tokenCommand() *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:         "token",
		Short:       "Issue an API bearer token for the actor",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return &services.Error{Kind: services.KindValidation, Reason: "--secret or JWT_SECRET is required"}
			}
			if a.actor.ID == "" {
				return &services.Error{Kind: services.KindValidation, Reason: "--actor-id is required"}
			}
			token, err := middleware.IssueToken(secret, a.actor.ID, a.actor.Username, a.actor.Role, ttl)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"token": token, "expiresIn": ttl.String()})
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret shared with the API")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
