package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/digkill/resumegate/internal/client"
	"github.com/digkill/resumegate/internal/identity"
	"github.com/digkill/resumegate/internal/models"
)

type identityFlags struct {
	email string
	phone string
}

func (f *identityFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "Email the purchase was made with")
	cmd.Flags().StringVar(&f.phone, "phone", "", "Phone number the purchase was made with")
}

func (f *identityFlags) identifier() (string, error) {
	if strings.TrimSpace(f.email) == "" || strings.TrimSpace(f.phone) == "" {
		return "", errors.New("--email and --phone are required")
	}
	return identity.Compose(f.email, f.phone), nil
}

func newVerifyCmd(opts *globalOptions) *cobra.Command {
	var (
		who       identityFlags
		paymentID string
		orderID   string
		signature string
		pkg       string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Confirm a completed checkout and record the purchase",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := who.identifier()
			if err != nil {
				return err
			}
			packageType, err := models.ParsePackageType(pkg)
			if err != nil {
				return err
			}
			c, err := opts.openClient()
			if err != nil {
				return err
			}

			res, err := c.Verify(cmd.Context(), client.VerifyInput{
				Identifier:  id,
				PaymentID:   paymentID,
				OrderID:     orderID,
				Signature:   signature,
				PackageType: packageType,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Payment verified: %s, %d credits available\n", res.PackageType, res.Credits)
			return nil
		},
	}
	who.bind(cmd)
	cmd.Flags().StringVar(&paymentID, "payment-id", "", "Razorpay payment id")
	cmd.Flags().StringVar(&orderID, "order-id", "", "Razorpay order id")
	cmd.Flags().StringVar(&signature, "signature", "", "Checkout signature")
	cmd.Flags().StringVar(&pkg, "package", string(models.PackageBasic), "Purchased package")
	return cmd
}

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var (
		who         identityFlags
		profilePath string
		feedback    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate documents for a profile, spending one credit",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.openClient()
			if err != nil {
				return err
			}

			profile, err := loadProfile(profilePath, c)
			if err != nil {
				return err
			}
			if who.email == "" {
				who.email = profile.Email
			}
			if who.phone == "" {
				who.phone = profile.Phone
			}
			id, err := who.identifier()
			if err != nil {
				return err
			}

			doc, err := c.Generate(cmd.Context(), id, profile, feedback)
			if errors.Is(err, client.ErrCheckoutRequired) {
				printPackages(cmd.OutOrStdout())
				return err
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	who.bind(cmd)
	cmd.Flags().StringVar(&profilePath, "profile", "", "Path to a profile JSON file; defaults to the saved draft")
	cmd.Flags().StringVar(&feedback, "feedback", "", "Refinement instructions")
	return cmd
}

func loadProfile(path string, c *client.Client) (models.Profile, error) {
	if path == "" {
		draft, ok := c.Cache().Draft()
		if !ok {
			return models.Profile{}, errors.New("no saved draft; pass --profile")
		}
		return draft, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func newCreditsCmd(opts *globalOptions) *cobra.Command {
	var who identityFlags

	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Show the locally cached credit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := who.identifier()
			if err != nil {
				return err
			}
			cache, err := opts.openCache()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cache.IsPaid(id) {
				fmt.Fprintln(out, "No purchase recorded for this identity.")
				return nil
			}
			credits, _ := cache.Credits(id)
			fmt.Fprintf(out, "Credits remaining: %d\n", credits)
			return nil
		},
	}
	who.bind(cmd)
	return cmd
}

func newClearCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget cached purchases and the saved draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := opts.openCache()
			if err != nil {
				return err
			}
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Local cache cleared.")
			return nil
		},
	}
}

func newPackagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "List purchasable packages",
		Run: func(cmd *cobra.Command, args []string) {
			printPackages(cmd.OutOrStdout())
		},
	}
}

func printPackages(w io.Writer) {
	types := make([]models.PackageType, 0, len(models.Pricing))
	for p := range models.Pricing {
		types = append(types, p)
	}
	sort.Slice(types, func(i, j int) bool {
		return models.Pricing[types[i]].AmountPaise < models.Pricing[types[j]].AmountPaise
	})

	fmt.Fprintln(w, "Purchase a package to continue:")
	for _, p := range types {
		price := models.Pricing[p]
		fmt.Fprintf(w, "  %-15s %-15s ₹%d.%02d\n", p, price.Label, price.AmountPaise/100, price.AmountPaise%100)
		for _, f := range price.Features {
			fmt.Fprintf(w, "      - %s\n", f)
		}
	}
}
