// Package pagination turns a listing result into page controls.
package pagination

import (
	"errors"
	"sync"

	"findmysecurity/internal/common/logger"
	"findmysecurity/internal/models"
)

var ErrPageOutOfRange = errors.New("PAGE_OUT_OF_RANGE")

type PageControl struct {
	Number  int  `json:"number"`
	Current bool `json:"current"`
}

// View is the rendered pagination. Pages is empty when there is at most one page.
type View struct {
	TotalPages int           `json:"totalPages"`
	Current    int           `json:"current"`
	Pages      []PageControl `json:"pages"`
}

// TotalPages is ceil(totalCount/pageSize), or 1 when pageSize is not positive.
func TotalPages(totalCount, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	if totalCount <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}

// FromCounts builds the view for a page position.
func FromCounts(totalCount, pageSize, page int) View {
	total := TotalPages(totalCount, pageSize)
	view := View{TotalPages: total, Current: page, Pages: []PageControl{}}
	if total <= 1 {
		return view
	}
	for k := 1; k <= total; k++ {
		view.Pages = append(view.Pages, PageControl{Number: k, Current: k == page})
	}
	return view
}

// Build returns the view for result; a nil result renders nothing.
func Build[T any](result *models.ListingResult[T]) View {
	if result == nil {
		return View{Pages: []PageControl{}}
	}
	return FromCounts(result.TotalCount, result.PageSize, result.Page)
}

// PageSetter is the filter store operation a page click maps to.
type PageSetter interface {
	SetPage(n int) int
}

// Controller routes page-control clicks to the filter store. It never fetches;
// the resulting state change does.
type Controller struct {
	setter PageSetter
	logger logger.Logger

	mu   sync.Mutex
	view View
}

func NewController(setter PageSetter, log logger.Logger) *Controller {
	return &Controller{
		setter: setter,
		logger: logger.ForComponent(log, "pagination"),
		view:   View{Pages: []PageControl{}},
	}
}

// Update replaces the rendered view.
func (c *Controller) Update(view View) {
	c.mu.Lock()
	c.view = view
	c.mu.Unlock()
}

func (c *Controller) Render() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Click selects page k. Only rendered page numbers are accepted.
func (c *Controller) Click(k int) error {
	c.mu.Lock()
	total := c.view.TotalPages
	c.mu.Unlock()

	if total <= 1 || k < 1 || k > total {
		c.logger.Debug("page click out of range", map[string]interface{}{
			"page":       k,
			"totalPages": total,
		})
		return ErrPageOutOfRange
	}
	c.setter.SetPage(k)
	return nil
}
