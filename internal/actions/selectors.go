package actions

// Selector fallback lists for the portal UI, in order of preference. The
// portal ships markup changes without notice, so every lookup walks a list
// instead of pinning one selector.

var fileInputSelectors = []string{
	"input[type='file'][accept*='.doc']",
	"input[accept*='.pdf']",
	"#attachCV",
	".upload-resume input[type='file']",
	"input[type='file']",
}

var resumeSectionSelectors = []string{
	".widgetHead.resumeWidget",
	".row.resumeWidget",
	"a[title*='resume']",
	".updateBtn",
}

var headlineEditSelectors = []string{
	".resumeHeadline .pencilIcon",
	".resumeHeadline [class*='edit']",
	".row.resumeHeadline .icon-edit",
}

var headlineTextareaSelectors = []string{
	"textarea[name='resumeHeadline']",
	".resumeHeadline textarea",
}

var headlineSaveSelectors = []string{
	"button.btn-dark-ot",
	"form[name='resumeHeadlineForm'] button[type='submit']",
	"button[type='submit']",
}
