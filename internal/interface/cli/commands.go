package cli_interface

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ark-network/notewallet/internal/core/application"
	"github.com/ark-network/notewallet/internal/core/domain"
	service_interface "github.com/ark-network/notewallet/internal/interface"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// AppFactory builds the wallet app service. It's invoked once per command.
type AppFactory func() (application.Service, error)

// flags
var (
	passwordFlag = &cli.StringFlag{
		Name:     "password",
		Usage:    "password used to encrypt the wallet data",
		EnvVars:  []string{"NOTEWALLET_PASSWORD"},
		Required: true,
	}
	addressFlag = &cli.StringFlag{
		Name:     "address",
		Usage:    "address of the account",
		Required: true,
	}
	recipientFlag = &cli.StringFlag{
		Name:     "to",
		Usage:    "recipient address",
		Required: true,
	}
	amountFlag = &cli.Uint64Flag{
		Name:  "amount",
		Usage: "amount to send in nicks",
	}
	feeFlag = &cli.Uint64Flag{
		Name:  "fee",
		Usage: "explicit fee in nicks, estimated if omitted",
	}
	sweepFlag = &cli.BoolFlag{
		Name:  "sweep",
		Usage: "send the whole available balance minus fees",
	}
	authFlag = &cli.StringFlag{
		Name:    "auth",
		Usage:   "authorization material forwarded to the signer",
		EnvVars: []string{"NOTEWALLET_SIGNER_AUTH"},
	}
	refundFlag = &cli.StringFlag{
		Name:  "refund-address",
		Usage: "address receiving the change, defaults to the sender",
	}
	priceFlag = &cli.Float64Flag{
		Name:  "price",
		Usage: "fiat price at the time of sending, stored with the tx",
	}
	directionFlag = &cli.StringFlag{
		Name:  "direction",
		Usage: "filter by direction: incoming | outgoing",
	}
	pendingFlag = &cli.BoolFlag{
		Name:  "pending",
		Usage: "list only pending transactions",
	}
)

type handler struct {
	newApp AppFactory
	out    io.Writer
}

// NewApp returns the notewalletd command line app. Every command writes its
// JSON result to out.
func NewApp(newApp AppFactory, out io.Writer) *cli.App {
	h := &handler{newApp, out}

	app := cli.NewApp()
	app.Name = "notewalletd"
	app.Usage = "track, reconcile and spend the notes of your accounts"
	app.Flags = []cli.Flag{passwordFlag}
	app.Commands = append(
		cli.Commands{},
		&cli.Command{
			Name:   "serve",
			Usage:  "Run the daemon, syncing the configured accounts periodically",
			Action: h.serveAction,
		},
		&cli.Command{
			Name:   "sync",
			Usage:  "Reconcile an account against the chain",
			Flags:  []cli.Flag{addressFlag},
			Action: h.syncAction,
		},
		&cli.Command{
			Name:   "resync",
			Usage:  "Replace the notes of an account with the chain view",
			Flags:  []cli.Flag{addressFlag},
			Action: h.resyncAction,
		},
		&cli.Command{
			Name:   "balance",
			Usage:  "Get the balance of an account",
			Flags:  []cli.Flag{addressFlag},
			Action: h.balanceAction,
		},
		&cli.Command{
			Name:  "send",
			Usage: "Send funds from an account",
			Flags: []cli.Flag{
				addressFlag, recipientFlag, amountFlag, feeFlag, sweepFlag,
				authFlag, refundFlag, priceFlag,
			},
			Action: h.sendAction,
		},
		&cli.Command{
			Name:   "notes",
			Usage:  "List the notes of an account",
			Flags:  []cli.Flag{addressFlag},
			Action: h.notesAction,
		},
		&cli.Command{
			Name:   "history",
			Usage:  "List the transactions of an account, most recent first",
			Flags:  []cli.Flag{addressFlag, directionFlag, pendingFlag},
			Action: h.historyAction,
		},
	)
	return app
}

func (h *handler) serveAction(ctx *cli.Context) error {
	app, err := h.newApp()
	if err != nil {
		return err
	}

	svc, err := service_interface.NewService(app, ctx.String(passwordFlag.Name))
	if err != nil {
		app.Stop()
		return err
	}

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		svc.Stop()
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case <-ctx.Context.Done():
	}

	log.Info("shutting down service...")
	svc.Stop()
	return nil
}

func (h *handler) syncAction(ctx *cli.Context) error {
	return h.withApp(ctx, func(c context.Context, app application.Service) (interface{}, error) {
		return app.Sync(c, ctx.String(addressFlag.Name))
	})
}

func (h *handler) resyncAction(ctx *cli.Context) error {
	return h.withApp(ctx, func(c context.Context, app application.Service) (interface{}, error) {
		return app.Resync(c, ctx.String(addressFlag.Name))
	})
}

func (h *handler) balanceAction(ctx *cli.Context) error {
	return h.withApp(ctx, func(c context.Context, app application.Service) (interface{}, error) {
		return app.GetBalance(c, ctx.String(addressFlag.Name))
	})
}

func (h *handler) sendAction(ctx *cli.Context) error {
	req := application.SendRequest{
		Address:       ctx.String(addressFlag.Name),
		Recipient:     ctx.String(recipientFlag.Name),
		Amount:        ctx.Uint64(amountFlag.Name),
		Sweep:         ctx.Bool(sweepFlag.Name),
		Authorization: ctx.String(authFlag.Name),
		RefundAddress: ctx.String(refundFlag.Name),
	}
	if ctx.IsSet(feeFlag.Name) {
		fee := ctx.Uint64(feeFlag.Name)
		req.Fee = &fee
	}
	if ctx.IsSet(priceFlag.Name) {
		price := ctx.Float64(priceFlag.Name)
		req.PriceAtTime = &price
	}
	if req.Sweep && req.Amount > 0 {
		return fmt.Errorf("amount and sweep are mutually exclusive")
	}
	if !req.Sweep && req.Amount == 0 {
		return fmt.Errorf("missing amount")
	}

	return h.withApp(ctx, func(c context.Context, app application.Service) (interface{}, error) {
		txid, err := app.Send(c, req)
		if err != nil {
			return nil, err
		}
		return map[string]string{"txid": txid}, nil
	})
}

func (h *handler) notesAction(ctx *cli.Context) error {
	return h.withApp(ctx, func(c context.Context, app application.Service) (interface{}, error) {
		return app.ListNotes(c, ctx.String(addressFlag.Name))
	})
}

func (h *handler) historyAction(ctx *cli.Context) error {
	filter, err := parseTxFilter(
		ctx.String(directionFlag.Name), ctx.Bool(pendingFlag.Name),
	)
	if err != nil {
		return err
	}

	return h.withApp(ctx, func(c context.Context, app application.Service) (interface{}, error) {
		return app.ListTransactions(c, ctx.String(addressFlag.Name), filter)
	})
}

// withApp unlocks the wallet, runs fn and prints its result, flushing and
// closing the wallet on return.
func (h *handler) withApp(
	ctx *cli.Context,
	fn func(context.Context, application.Service) (interface{}, error),
) error {
	app, err := h.newApp()
	if err != nil {
		return err
	}
	defer app.Stop()

	if err := app.Unlock(ctx.Context, ctx.String(passwordFlag.Name)); err != nil {
		return err
	}

	resp, err := fn(ctx.Context, app)
	if err != nil {
		return err
	}
	return h.printJSON(resp)
}

func (h *handler) printJSON(resp interface{}) error {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return err
	}

	fmt.Fprintln(h.out, string(jsonBytes))
	return nil
}

func parseTxFilter(direction string, pending bool) (domain.TxFilter, error) {
	var filter domain.TxFilter
	switch direction {
	case "":
	case "incoming":
		d := domain.TxIncoming
		filter.Direction = &d
	case "outgoing":
		d := domain.TxOutgoing
		filter.Direction = &d
	default:
		return filter, fmt.Errorf("invalid direction %s, must be incoming or outgoing", direction)
	}
	if pending {
		filter.Status = func(s domain.TxStatus) bool { return !s.IsTerminal() }
	}
	return filter, nil
}
