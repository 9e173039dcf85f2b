package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
	"github.com/uhyunpark/crossbook/pkg/app/spot"
)

var (
	simOrders      int
	simSeed        int64
	simInstruments []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "submit random orders around sample prices and print the books",
	RunE: func(cmd *cobra.Command, _ []string) error {
		symbols := make([]orderbook.Symbol, 0, len(simInstruments))
		for _, s := range simInstruments {
			sym, err := orderbook.ParseSymbol(s)
			if err != nil {
				return err
			}
			symbols = append(symbols, sym)
		}
		return simulate(cmd.Context(), cmd.OutOrStdout(), symbols, simOrders, simSeed)
	},
}

func init() {
	simulateCmd.Flags().IntVarP(&simOrders, "orders", "n", 10, "orders per instrument")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "random seed (0 = time based)")
	simulateCmd.Flags().StringSliceVar(&simInstruments, "instruments", []string{"SPY", "MSFT"}, "instruments with sample prices")
	rootCmd.AddCommand(simulateCmd)
}

func simulate(ctx context.Context, w io.Writer, symbols []orderbook.Symbol, n int, seed int64) error {
	engine := spot.NewEngine()
	gen := spot.NewOrderGenerator(seed, "")

	for _, sym := range symbols {
		orders, err := gen.Batch(sym, n)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Processing %s orders:\n", sym)
		for _, o := range orders {
			fmt.Fprintf(w, "\nadd %s %s %s @ %s x %d\n", o.ID, o.Instrument, o.Side, o.Price, o.Quantity)
			trades, err := engine.Submit(ctx, o)
			if err != nil {
				return err
			}
			for _, t := range trades {
				fmt.Fprintf(w, "  trade buy=%s sell=%s %d @ %s\n", t.BuyOrderID, t.SellOrderID, t.Quantity, t.Price)
			}
		}
		printBook(w, engine.Snapshot(ctx, sym.String()))
		fmt.Fprintln(w)
	}
	return nil
}

func printBook(w io.Writer, state orderbook.BookState) {
	fmt.Fprintf(w, "\n%s book\n", state.Instrument)
	fmt.Fprintln(w, "  bids:")
	for _, lvl := range state.Bids {
		fmt.Fprintf(w, "    %s: %d orders, %d total\n", lvl.Price, len(lvl.Entries), lvl.TotalQuantity())
	}
	fmt.Fprintln(w, "  asks:")
	for _, lvl := range state.Asks {
		fmt.Fprintf(w, "    %s: %d orders, %d total\n", lvl.Price, len(lvl.Entries), lvl.TotalQuantity())
	}
}
