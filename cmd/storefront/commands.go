package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lumi-glow/storefront/internal/cart"
	"github.com/lumi-glow/storefront/pkg/enums"
	"github.com/lumi-glow/storefront/pkg/errors"
	"github.com/lumi-glow/storefront/pkg/logger"
	"github.com/lumi-glow/storefront/pkg/money"
)

const version = "0.1.0"

func rootCmd(logg *logger.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Lumi Glow cart and checkout",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		cartCmd(logg),
		checkoutCmd(logg),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("storefront version %s\n", version)
			},
		},
	)
	return cmd
}

// withApp wires the core, runs fn, and tears the core down again.
func withApp(logg *logger.Logger, fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := newApp(ctx, logg)
	if err != nil {
		return err
	}
	defer a.close(ctx)
	return fn(ctx, a)
}

func cartCmd(logg *logger.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and mutate the cart",
	}

	var (
		id       int
		name     string
		price    string
		discount string
		image    string
		qty      int
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a product to the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(logg, func(ctx context.Context, a *app) error {
				product := cart.Product{ID: id, Name: name, Price: price, Image: image}
				if discount != "" {
					product.DiscountPrice = &discount
				}
				items := a.cart.AddItem(ctx, product, qty)
				printCart(items)
				return nil
			})
		},
	}
	add.Flags().IntVar(&id, "id", 0, "Product id")
	add.Flags().StringVar(&name, "name", "", "Product name")
	add.Flags().StringVar(&price, "price", "0", "Unit price")
	add.Flags().StringVar(&discount, "discount", "", "Discounted unit price")
	add.Flags().StringVar(&image, "image", "", "Product image source")
	add.Flags().IntVar(&qty, "qty", 1, "Quantity")
	add.MarkFlagRequired("id")
	add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(logg, func(ctx context.Context, a *app) error {
				printCart(a.cart.Items(ctx))
				return nil
			})
		},
	}

	setQty := &cobra.Command{
		Use:   "set-qty <product-id> <quantity>",
		Short: "Set a line's quantity, zero removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("product id must be a number: %w", err)
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be a number: %w", err)
			}
			return withApp(logg, func(ctx context.Context, a *app) error {
				printCart(a.cart.UpdateQuantity(ctx, productID, quantity))
				return nil
			})
		},
	}

	rm := &cobra.Command{
		Use:   "rm <product-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("product id must be a number: %w", err)
			}
			return withApp(logg, func(ctx context.Context, a *app) error {
				printCart(a.cart.RemoveItem(ctx, productID))
				return nil
			})
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(logg, func(ctx context.Context, a *app) error {
				a.cart.Clear(ctx)
				fmt.Println("cart cleared")
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, setQty, rm, clear)
	return cmd
}

func checkoutCmd(logg *logger.Logger) *cobra.Command {
	var (
		paymentMethod string
		addressID     int
		methodID      int
		couponCode    string
		notes         string
	)

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order from the current cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(logg, func(ctx context.Context, a *app) error {
				if _, err := a.orch.Begin(ctx); err != nil {
					return fmt.Errorf("%s", errors.UserMessage(err))
				}

				if addressID > 0 {
					if err := a.orch.SetShippingAddress(addressID); err != nil {
						return err
					}
				}
				if methodID > 0 {
					if err := a.orch.SetShippingMethod(ctx, methodID); err != nil {
						return err
					}
				}
				if paymentMethod != "" {
					method, err := enums.ParsePaymentMethod(paymentMethod)
					if err != nil {
						return err
					}
					if err := a.orch.SetPaymentMethod(method); err != nil {
						return err
					}
				}
				if notes != "" {
					a.orch.SetNotes(notes)
				}
				if couponCode != "" {
					if err := a.orch.ApplyCoupon(ctx, couponCode); err != nil {
						fmt.Printf("coupon rejected: %s\n", errors.UserMessage(err))
					}
				}

				totals := a.orch.Totals(ctx)
				fmt.Printf("subtotal  %s\n", money.Format(totals.Subtotal))
				fmt.Printf("shipping  %s\n", money.Format(totals.ShippingCost))
				fmt.Printf("discount  %s\n", money.Format(totals.DiscountAmount))
				fmt.Printf("total     %s\n", money.Format(totals.Total))

				result, err := a.orch.PlaceOrder(ctx)
				if err != nil {
					if coded := errors.As(err); coded != nil && len(coded.Fields()) > 0 {
						for field, message := range coded.Fields() {
							fmt.Printf("  %s: %s\n", field, message)
						}
					}
					return fmt.Errorf("%s", errors.UserMessage(err))
				}

				fmt.Printf("order %d confirmed, paid by %s\n", result.Checkout.ID, result.Checkout.PaymentMethod)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&paymentMethod, "payment", "cash", "Payment method (cash, card, bkash, nagad, rocket)")
	cmd.Flags().IntVar(&addressID, "address", 0, "Shipping address id, defaults to the saved default")
	cmd.Flags().IntVar(&methodID, "method", 0, "Shipping method id, defaults to the first active option")
	cmd.Flags().StringVar(&couponCode, "coupon", "", "Coupon code to apply")
	cmd.Flags().StringVar(&notes, "notes", "", "Delivery notes")
	return cmd
}

func printCart(items []cart.LineItem) {
	if len(items) == 0 {
		fmt.Println("cart is empty")
		return
	}
	for _, item := range items {
		fmt.Printf("%-4d %-30s x%-3d %s\n", item.ProductID, item.Name, item.Quantity, money.Format(item.LineTotal()))
	}
	fmt.Printf("%d items, total %s\n", cart.ItemCount(items), money.Format(cart.Total(items)))
}
