package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/storeadmin/internal/client/models"
	"github.com/dmitrijs2005/storeadmin/internal/client/router"
	"github.com/dmitrijs2005/storeadmin/internal/client/services"
)

// Categories lists the store categories.
func (a *App) Categories(ctx context.Context, _ []string) error {
	if !a.navigate(ctx, router.Categories) {
		return nil
	}
	if err := a.catalog.FetchCategories(ctx); err != nil {
		a.notify.Error(err.Error())
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSLUG")
	for _, c := range a.catalog.State().Categories {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, c.Slug)
	}
	return tw.Flush()
}

// Products shows a page of products: the given page, or a refresh of the
// current one.
func (a *App) Products(ctx context.Context, args []string) error {
	if !a.navigate(ctx, router.Products) {
		return nil
	}

	var err error
	st := a.catalog.State()
	switch {
	case len(args) > 0:
		page, perr := strconv.Atoi(args[0])
		if perr != nil {
			a.notify.Warning("usage: products [page]")
			return nil
		}
		if !st.Hydrated {
			err = a.catalog.FetchProducts(ctx, 1, services.FetchOptions{})
		}
		if err == nil {
			err = a.catalog.GoToPage(ctx, page)
		}
	case !st.Hydrated:
		err = a.catalog.FetchProducts(ctx, 1, services.FetchOptions{})
	default:
		err = a.catalog.FetchProducts(ctx, st.Pagination.CurrentPage, services.FetchOptions{Force: true})
	}
	return a.showProducts(err)
}

func (a *App) NextPage(ctx context.Context, _ []string) error {
	if !a.navigate(ctx, router.Products) {
		return nil
	}
	if !a.catalog.HasNextPage() {
		a.notify.Warning("Already on the last page.")
		return nil
	}
	return a.showProducts(a.catalog.GoToPage(ctx, a.catalog.State().Pagination.CurrentPage+1))
}

func (a *App) PrevPage(ctx context.Context, _ []string) error {
	if !a.navigate(ctx, router.Products) {
		return nil
	}
	if !a.catalog.HasPreviousPage() {
		a.notify.Warning("Already on the first page.")
		return nil
	}
	return a.showProducts(a.catalog.GoToPage(ctx, a.catalog.State().Pagination.CurrentPage-1))
}

// Search filters products by title; no argument clears the filter.
func (a *App) Search(ctx context.Context, args []string) error {
	if !a.navigate(ctx, router.Products) {
		return nil
	}
	query := strings.Join(args, " ")
	return a.showProducts(a.catalog.FetchProducts(ctx, 1, services.FetchOptions{Force: true, Search: &query}))
}

func (a *App) PageSize(ctx context.Context, args []string) error {
	if !a.navigate(ctx, router.Products) {
		return nil
	}
	n := 0
	if len(args) > 0 {
		n, _ = strconv.Atoi(args[0])
	}
	if n <= 0 {
		a.notify.Warning("usage: pagesize <n>")
		return nil
	}
	if n == a.catalog.State().Pagination.PageSize {
		return a.showProducts(nil)
	}
	return a.showProducts(a.catalog.SetPageSize(ctx, n))
}

func (a *App) showProducts(err error) error {
	if err != nil {
		a.notify.Error(err.Error())
		return err
	}

	st := a.catalog.State()
	if len(st.Products) == 0 {
		if st.Search != "" {
			fmt.Fprintf(a.out, "No products match %q.\n", st.Search)
		} else {
			fmt.Fprintln(a.out, "No products.")
		}
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tCATEGORY")
	for _, p := range st.Products {
		category := ""
		if p.Category != nil {
			category = p.Category.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\n", p.ID, p.Title, p.Price, category)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	r := a.catalog.ShowingRange()
	fmt.Fprintf(a.out, "Showing %d-%d of %d (page %d/%d)\n",
		r.Start, r.End, st.Pagination.Total, st.Pagination.CurrentPage, a.catalog.TotalPages())
	return nil
}

// AddProduct prompts for a new product. Image entries that name local files
// are uploaded first.
func (a *App) AddProduct(ctx context.Context, _ []string) error {
	if !a.navigate(ctx, router.Products) {
		return nil
	}

	title, err := getSimpleText(a.reader, "Enter title", a.out)
	if err != nil {
		return err
	}
	priceText, err := getSimpleText(a.reader, "Enter price", a.out)
	if err != nil {
		return err
	}
	price, err := strconv.ParseFloat(priceText, 64)
	if err != nil || price < 0 {
		a.notify.Error(fmt.Sprintf("Invalid price %q.", priceText))
		return fmt.Errorf("invalid price %q", priceText)
	}
	description, err := GetMultiline(a.reader, "Enter description", a.out)
	if err != nil {
		return err
	}
	categoryText, err := getSimpleText(a.reader, fmt.Sprintf("Enter category id [%d]", services.DefaultCategoryID), a.out)
	if err != nil {
		return err
	}
	var categoryID int64
	if categoryText != "" {
		categoryID, err = strconv.ParseInt(categoryText, 10, 64)
		if err != nil {
			a.notify.Error(fmt.Sprintf("Invalid category id %q.", categoryText))
			return err
		}
	}
	images, err := a.promptImages(ctx, "Enter image URLs or files, comma separated (empty for a placeholder)")
	if err != nil {
		return err
	}

	p, err := a.catalog.CreateProduct(ctx, models.CreateProductPayload{
		Title:       title,
		Price:       price,
		Description: description,
		CategoryID:  categoryID,
		Images:      images,
	})
	if err != nil {
		a.notify.Error(err.Error())
		return err
	}

	a.notify.Success(a.catalog.State().CreationSuccess)
	fmt.Fprintf(a.out, "Created product %d (%s)\n", p.ID, p.Title)
	a.catalog.ClearCreationStatus()
	return nil
}

// EditProduct prompts for changed fields of product id; empty answers keep
// the current value.
func (a *App) EditProduct(ctx context.Context, args []string) error {
	if !a.navigate(ctx, router.Products) {
		return nil
	}
	id, err := parseID(args, "editproduct <id>")
	if err != nil {
		a.notify.Warning(err.Error())
		return nil
	}

	var payload models.UpdateProductPayload

	title, err := getSimpleText(a.reader, "New title (empty keeps)", a.out)
	if err != nil {
		return err
	}
	if title != "" {
		payload.Title = &title
	}

	priceText, err := getSimpleText(a.reader, "New price (empty keeps)", a.out)
	if err != nil {
		return err
	}
	if priceText != "" {
		price, err := strconv.ParseFloat(priceText, 64)
		if err != nil || price < 0 {
			a.notify.Error(fmt.Sprintf("Invalid price %q.", priceText))
			return fmt.Errorf("invalid price %q", priceText)
		}
		payload.Price = &price
	}

	description, err := getSimpleText(a.reader, "New description (empty keeps)", a.out)
	if err != nil {
		return err
	}
	if description != "" {
		payload.Description = &description
	}

	images, err := a.promptImages(ctx, "New image URLs or files, comma separated (empty keeps)")
	if err != nil {
		return err
	}
	payload.Images = images

	p, err := a.catalog.UpdateProduct(ctx, id, payload)
	if err != nil {
		a.notify.Error(err.Error())
		return err
	}
	a.notify.Success(fmt.Sprintf("Product %d updated.", p.ID))
	return nil
}

func (a *App) DeleteProduct(ctx context.Context, args []string) error {
	if !a.navigate(ctx, router.Products) {
		return nil
	}
	id, err := parseID(args, "deleteproduct <id>")
	if err != nil {
		a.notify.Warning(err.Error())
		return nil
	}

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete product %d? [y/N]", id), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	if err := a.catalog.DeleteProduct(ctx, id); err != nil {
		a.notify.Error(err.Error())
		return err
	}
	a.notify.Success(fmt.Sprintf("Product %d deleted.", id))
	return nil
}

// Upload sends a local image file and prints its public URL.
func (a *App) Upload(ctx context.Context, args []string) error {
	if !a.navigate(ctx, router.Products) {
		return nil
	}
	if len(args) == 0 {
		a.notify.Warning("usage: upload <file>")
		return nil
	}

	u, err := a.uploadFile(ctx, args[0])
	if err != nil {
		a.notify.Error(err.Error())
		return err
	}
	a.notify.Success("Image uploaded.")
	fmt.Fprintln(a.out, u)
	return nil
}

func (a *App) uploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return a.catalog.UploadImage(ctx, path, f)
}

// promptImages reads a comma separated list. Entries that are not http(s)
// URLs are treated as local files and uploaded.
func (a *App) promptImages(ctx context.Context, prompt string) ([]string, error) {
	text, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, item := range splitList(text) {
		if strings.HasPrefix(item, "http://") || strings.HasPrefix(item, "https://") {
			out = append(out, item)
			continue
		}
		u, err := a.uploadFile(ctx, item)
		if err != nil {
			a.notify.Error(fmt.Sprintf("Upload of %s failed: %v", item, err))
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
