// CLAUDE:SUMMARY Blocks configured resource types (images, fonts, media, stylesheets) on Rod pages via request hijacking.
package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockSet maps config names to CDP resource types.
type blockSet map[proto.NetworkResourceType]bool

func newBlockSet(names []string) blockSet {
	set := make(blockSet, len(names))
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "images", "image":
			set[proto.NetworkResourceTypeImage] = true
		case "fonts", "font":
			set[proto.NetworkResourceTypeFont] = true
		case "media":
			set[proto.NetworkResourceTypeMedia] = true
		case "stylesheets", "stylesheet", "css":
			set[proto.NetworkResourceTypeStylesheet] = true
		}
	}
	return set
}

func (s blockSet) blocks(t proto.NetworkResourceType) bool { return s[t] }

// applyResourceBlocking hijacks every request on page and fails those whose
// resource type is blocked. The returned router is stopped with the page.
func applyResourceBlocking(page *rod.Page, names []string) *rod.HijackRouter {
	set := newBlockSet(names)
	if len(set) == 0 {
		return nil
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if set.blocks(h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
