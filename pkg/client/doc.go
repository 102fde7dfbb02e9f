// Package autofilter is a Go client for the autofilter HTTP API: autocomplete
// search, get-or-create, changelists and health.
//
//	c, _ := autofilter.New("http://localhost:8080", autofilter.WithAPIKey("staff-key"))
//	page, _ := c.Search(ctx, "/admin/cities/autocomplete/", "par", autofilter.SearchOptions{})
//	for _, r := range page.Results {
//	    fmt.Println(r.ID, r.Text, r.CreateID)
//	}
//	city, _ := c.Create(ctx, "/admin/cities/autocomplete/", "Bergen", nil)
package autofilter
