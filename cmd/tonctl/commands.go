package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/web3-frozen/ton-storefront/internal/client"
	"github.com/web3-frozen/ton-storefront/internal/model"
	"github.com/web3-frozen/ton-storefront/internal/transfer"
)

// API is the part of client.Client the commands use.
type API interface {
	TonPrice(ctx context.Context) float64
	TonPrices(ctx context.Context, currencies []model.Fiat) model.Prices
	TonPriceHistory(ctx context.Context, days int) []model.PricePoint
	UsdToUzs(ctx context.Context) float64
	Balance(ctx context.Context, address string, chain model.Chain) (float64, error)
	JettonBalance(ctx context.Context, owner, master string, chain model.Chain) (float64, error)
	Purchase(ctx context.Context, connector transfer.Connector, nftID, to string) (transfer.Request, error)
}

const usage = `usage: tonctl <command> [flags]

commands:
  price                     TON price in USD
  prices  -currencies LIST  TON price in each currency (usd,eur,rub,uzs)
  history -days N           hourly USD price history
  fx                        USD to UZS rate
  balance -address A [-chain mainnet|testnet]
  jetton  -owner O -master M [-chain mainnet|testnet]
  buy     -nft ID -to ADDRESS
`

// run executes one command and returns the process exit code.
func run(ctx context.Context, api API, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)

	switch cmd {
	case "price":
		if fs.Parse(rest) != nil {
			return 2
		}
		fmt.Fprintf(stdout, "%.4f USD\n", api.TonPrice(ctx))

	case "prices":
		currencies := fs.String("currencies", "usd", "comma separated currency codes")
		if fs.Parse(rest) != nil {
			return 2
		}
		prices := api.TonPrices(ctx, model.ParseCurrencies(*currencies))
		keys := make([]string, 0, len(prices))
		for k := range prices {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(stdout, "%s %.4f\n", k, prices[model.Fiat(k)])
		}

	case "history":
		days := fs.Int("days", 1, "number of days, 1 to 365")
		if fs.Parse(rest) != nil {
			return 2
		}
		for _, p := range api.TonPriceHistory(ctx, *days) {
			fmt.Fprintf(stdout, "%d %.4f\n", p.T, p.P)
		}

	case "fx":
		if fs.Parse(rest) != nil {
			return 2
		}
		fmt.Fprintf(stdout, "1 USD = %.2f UZS\n", api.UsdToUzs(ctx))

	case "balance":
		address := fs.String("address", "", "wallet address")
		chain := fs.String("chain", string(model.Mainnet), "mainnet or testnet")
		if fs.Parse(rest) != nil {
			return 2
		}
		if *address == "" {
			fmt.Fprintln(stderr, "balance: -address is required")
			return 2
		}
		b, err := api.Balance(ctx, *address, model.Chain(*chain))
		if err != nil {
			return fail(stderr, "balance", err)
		}
		fmt.Fprintf(stdout, "%.9f TON\n", b)

	case "jetton":
		owner := fs.String("owner", "", "owner wallet address")
		master := fs.String("master", "", "jetton master address")
		chain := fs.String("chain", string(model.Testnet), "mainnet or testnet")
		if fs.Parse(rest) != nil {
			return 2
		}
		if *owner == "" || *master == "" {
			fmt.Fprintln(stderr, "jetton: -owner and -master are required")
			return 2
		}
		b, err := api.JettonBalance(ctx, *owner, *master, model.Chain(*chain))
		if err != nil {
			return fail(stderr, "jetton", err)
		}
		fmt.Fprintf(stdout, "%g\n", b)

	case "buy":
		nft := fs.String("nft", "", "nft id, <collection id>-<token id>")
		to := fs.String("to", "", "recipient address")
		if fs.Parse(rest) != nil {
			return 2
		}
		if *nft == "" || *to == "" {
			fmt.Fprintln(stderr, "buy: -nft and -to are required")
			return 2
		}
		conn := &promptConnector{in: bufio.NewReader(stdin), out: stdout}
		if _, err := api.Purchase(ctx, conn, *nft, *to); err != nil {
			if errors.Is(err, transfer.ErrUserDeclined) {
				fmt.Fprintln(stdout, "purchase cancelled")
				return 1
			}
			return fail(stderr, "buy", err)
		}
		fmt.Fprintln(stdout, "request approved, sign it in your wallet")

	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)

	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	return 0
}

func fail(stderr io.Writer, cmd string, err error) int {
	if errors.Is(err, client.ErrUnavailable) {
		fmt.Fprintf(stderr, "%s: service unavailable, try again later (%v)\n", cmd, err)
		return 1
	}
	fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
	return 1
}
