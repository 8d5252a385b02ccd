package pagemeta

// HubPages возвращает реестр страниц хаба. Литеральные пути идут раньше
// параметрических, иначе "/plugins/:name" перекроет их.
func HubPages() []Descriptor {
	return []Descriptor{
		{
			Pattern: "/",
			Meta: Metadata{
				Title:       "napari hub",
				Description: "Discover, install, and share napari plugins",
				Keywords:    []string{"napari", "plugins", "image analysis"},
			},
		},
		{
			Pattern: "/about",
			Meta: Metadata{
				Title:       "napari hub | About",
				Description: "What the napari hub is and who builds it",
			},
		},
		{
			Pattern: "/faq",
			Meta: Metadata{
				Title:       "napari hub | FAQ",
				Description: "Frequently asked questions about the napari hub",
			},
		},
		{
			Pattern: "/privacy",
			Meta: Metadata{
				Title:       "napari hub | Privacy",
				Description: "How the napari hub handles your data",
			},
		},
		{
			Pattern: "/contact",
			Meta: Metadata{
				Title:       "napari hub | Contact",
				Description: "Get in touch with the napari hub team",
			},
		},
		{
			Pattern: "/plugins",
			Meta: Metadata{
				Title:       "napari hub | Plugins",
				Description: "Browse all napari plugins",
			},
		},
		{
			Pattern: "/plugins/:name",
			Meta: Metadata{
				Title:       "napari hub | plugins | {name}",
				Description: "Plugin page for {name}",
				Keywords:    []string{"napari", "{name}"},
			},
		},
		{
			Pattern: "/plugins/:name/activity",
			Meta: Metadata{
				Title:       "napari hub | plugins | {name} | activity",
				Description: "Install activity for {name}",
			},
		},
	}
}

// DefaultMatcher возвращает сопоставитель для реестра HubPages
func DefaultMatcher() *Matcher {
	return MustNewMatcher(HubPages()...)
}
