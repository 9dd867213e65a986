package naver

// Naver URLs and DOM selectors.
// These are isolated here because Naver changes its markup without notice.
// Update these when posting breaks.

const (
	LoginURL       = "https://nid.naver.com/nidlogin.login"
	BlogWriteURL   = "https://blog.naver.com/GoBlogWrite.naver"
	SiteDomain     = "naver.com"
	LoginPathToken = "nidlogin"
)

const (
	// Login form
	LoginIDInput       = `#id`
	LoginPasswordInput = `#pw`
	LoginSubmitButton  = `#log\.login`

	// Editor page; everything below EditorFrame lives inside that frame
	EditorFrame = `#mainFrame`

	// SmartEditor controls
	TitleSection = `.se-section-documentTitle`
	BodySection  = `.se-section-text`
	SaveButton   = `.save_btn__bzc5B`
	PageBody     = `body`
)

// OverlayCloseCandidates lists close controls of the popups and help panels
// the editor may open on load, most specific first.
var OverlayCloseCandidates = []string{
	`.se-popup-button-cancel`,
	`.se-hlpr-panel-close-button`,
	`.se-hlpe-panel-close-button`,
	`[class*='popup'][class*='close']`,
	`[class*='panel'][class*='close']`,
	`.close-button`,
	`.popup-close`,
	`button[aria-label*='닫기']`,
	`button[title*='닫기']`,
}
