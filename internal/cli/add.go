package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/homenest/internal/property"
)

// propertyFlags are the editable listing fields shared by add and update.
type propertyFlags struct {
	name, description, category string
	price                       float64
	currency, unit              string
	city, area, address, image  string
}

func (f *propertyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "property name")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.category, "category", "", "Apartment, House/Villa, Commercial or Land/Plot")
	cmd.Flags().Float64Var(&f.price, "price", 0, "price")
	cmd.Flags().StringVar(&f.currency, "currency", "BDT", "currency code")
	cmd.Flags().StringVar(&f.unit, "unit", "", "price unit, e.g. month")
	cmd.Flags().StringVar(&f.city, "city", "", "city")
	cmd.Flags().StringVar(&f.area, "area", "", "area or neighbourhood")
	cmd.Flags().StringVar(&f.address, "address", "", "street address")
	cmd.Flags().StringVar(&f.image, "image", "", "image URL")
}

// apply copies the flags the user set onto in.
func (f *propertyFlags) apply(cmd *cobra.Command, in *property.Input) error {
	changed := cmd.Flags().Changed
	if changed("category") {
		cat, err := property.ParseCategory(f.category)
		if err != nil {
			return err
		}
		in.Category = cat
	}
	set := func(flag string, dst *string, v string) {
		if changed(flag) {
			*dst = v
		}
	}
	set("name", &in.Name, f.name)
	set("description", &in.Description, f.description)
	set("currency", &in.Currency, f.currency)
	set("unit", &in.PriceUnit, f.unit)
	set("city", &in.Location.City, f.city)
	set("area", &in.Location.Area, f.area)
	set("address", &in.Location.Address, f.address)
	set("image", &in.Image, f.image)
	if changed("price") {
		in.Price = f.price
	}
	return nil
}

func newAddCmd() *cobra.Command {
	var f propertyFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Post a new property",
		Long:  "Post a new listing. The listing is attributed to the signed-in user.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return runAdd(cmd, a, &f)
		}),
	}
	f.register(cmd)

	return cmd
}

func runAdd(cmd *cobra.Command, a *app, f *propertyFlags) error {
	id, err := a.requireIdentity()
	if err != nil {
		return err
	}

	in := property.Input{Currency: f.currency}
	if err := f.apply(cmd, &in); err != nil {
		return err
	}
	in.PostedBy = &property.Poster{Name: id.Name(), Email: id.Email, ProfilePhoto: id.PhotoURL}
	if err := in.Validate(); err != nil {
		return err
	}

	p, err := a.api.CreateProperty(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("adding property: %w", err)
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, p)
	}
	fmt.Fprintf(out, "Property %s added.\n\n", p.ID)
	printPropertySummary(out, p)
	return nil
}
