package chat

// Overlay is the floating panel currently open on the page. At most one is
// open at a time.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayTripMenu
	OverlayAttachmentMenu
)

func (o Overlay) String() string {
	switch o {
	case OverlayTripMenu:
		return "trip-menu"
	case OverlayAttachmentMenu:
		return "attachment-menu"
	default:
		return "none"
	}
}

// Region names the part of the page a click landed on.
type Region string

const (
	RegionTripMenuToggle   Region = "trip-menu-toggle"
	RegionTripMenu         Region = "trip-menu"
	RegionAttachmentToggle Region = "attachment-toggle"
	RegionAttachmentMenu   Region = "attachment-menu"
	RegionOutside          Region = "outside"
)

// Click returns the overlay that is open after a click on r.
//
// A toggle opens its overlay, or closes it if it is the open one. A click
// inside the open overlay keeps it. Anything else closes whatever is open.
func (o Overlay) Click(r Region) Overlay {
	switch r {
	case RegionTripMenuToggle:
		if o == OverlayTripMenu {
			return OverlayNone
		}
		return OverlayTripMenu
	case RegionAttachmentToggle:
		if o == OverlayAttachmentMenu {
			return OverlayNone
		}
		return OverlayAttachmentMenu
	case RegionTripMenu:
		if o == OverlayTripMenu {
			return o
		}
	case RegionAttachmentMenu:
		if o == OverlayAttachmentMenu {
			return o
		}
	}
	return OverlayNone
}
