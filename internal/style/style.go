package style

// Preset is a named art style. Its Injection phrase is appended verbatim to
// prompts that use the style.
type Preset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Preview     string `json:"preview"`
	Injection   string `json:"promptInjection"`
}

var catalog = []Preset{
	{
		ID:          "pixel-art",
		Name:        "8-Bit Pixel Art",
		Description: "Retro pixelated style with crisp edges and limited colors",
		Preview:     "🎮",
		Injection:   "pixel art style, 8-bit retro graphics, crisp pixel edges, no anti-aliasing, limited color palette, classic video game aesthetic, sharp geometric shapes, pixelated details, retro gaming style, clean pixel work, blocky design, vintage arcade look",
	},
	{
		ID:          "hand-drawn",
		Name:        "Hand-Drawn Sketch",
		Description: "Artistic hand-drawn look with visible brush strokes",
		Preview:     "✏️",
		Injection:   "hand-drawn illustration, sketch style, visible brush strokes, artistic drawing, pencil sketch aesthetic, traditional art style, organic lines, handcrafted appearance, sketchy details, artistic illustration, drawn by hand, traditional media look",
	},
	{
		ID:          "cartoon-3d",
		Name:        "Cartoon 3D",
		Description: "Colorful 3D cartoon style with smooth surfaces",
		Preview:     "🎨",
		Injection:   "3D cartoon style, smooth rounded surfaces, vibrant colors, soft shading, Pixar-like rendering, clean 3D modeling, cartoon proportions, glossy finish, smooth gradients, playful 3D design, animated movie style, polished 3D render",
	},
	{
		ID:          "realistic",
		Name:        "Photorealistic",
		Description: "Highly detailed realistic rendering with accurate materials",
		Preview:     "📸",
		Injection:   "photorealistic rendering, hyperrealistic details, accurate materials and textures, realistic lighting and shadows, high-definition quality, lifelike appearance, detailed surface textures, realistic proportions, professional photography style, ultra-detailed, cinematic lighting",
	},
	{
		ID:          "minimalist",
		Name:        "Minimalist Flat",
		Description: "Clean flat design with simple shapes and solid colors",
		Preview:     "⚪",
		Injection:   "minimalist flat design, simple geometric shapes, solid flat colors, no gradients or shadows, clean lines, modern flat UI style, simplified forms, vector art style, geometric simplicity, flat illustration, minimal details, contemporary design",
	},
	{
		ID:          "medieval-fantasy",
		Name:        "Medieval Fantasy",
		Description: "Rich fantasy art with medieval themes and ornate details",
		Preview:     "⚔️",
		Injection:   "medieval fantasy art style, ornate decorative details, gothic design elements, rich textures, aged metal and leather, mystical engravings, heraldic symbols, elaborate craftsmanship, fantasy RPG aesthetic, magical aura, ancient artifacts style",
	},
	{
		ID:          "cyberpunk",
		Name:        "Cyberpunk Neon",
		Description: "Futuristic style with neon glows and tech elements",
		Preview:     "🌟",
		Injection:   "cyberpunk aesthetic, neon glow effects, holographic elements, futuristic technology, digital interfaces, chrome and metal surfaces, electric blue and pink highlights, sci-fi tech design, glowing circuit patterns, high-tech cybernetic style",
	},
	{
		ID:          "watercolor",
		Name:        "Watercolor Paint",
		Description: "Soft watercolor painting with flowing colors and bleeds",
		Preview:     "🎭",
		Injection:   "watercolor painting style, soft color bleeds, flowing pigments, paper texture visible, artistic brush marks, transparent washes, organic color mixing, traditional watercolor techniques, painterly quality, soft edges, artistic medium",
	},
	{
		ID:          "steampunk",
		Name:        "Steampunk Victorian",
		Description: "Victorian-era industrial design with brass and gears",
		Preview:     "⚙️",
		Injection:   "steampunk design, Victorian era industrial aesthetic, brass and copper materials, visible gears and clockwork, steam-powered mechanisms, intricate mechanical details, vintage industrial design, ornate metalwork, retro-futuristic technology",
	},
	{
		ID:          "anime-manga",
		Name:        "Anime/Manga",
		Description: "Japanese anime style with bold lines and vibrant colors",
		Preview:     "🌸",
		Injection:   "anime art style, manga illustration, bold clean linework, vibrant saturated colors, stylized proportions, Japanese animation aesthetic, cel-shading style, dynamic poses, expressive design, anime character style, manga artwork",
	},
}

// All returns a copy of the preset catalog.
func All() []Preset {
	out := make([]Preset, len(catalog))
	copy(out, catalog)
	return out
}

func Lookup(id string) (Preset, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Apply appends injection to prompt after a comma. It is a no-op when
// either side is empty.
func Apply(prompt, injection string) string {
	if prompt == "" || injection == "" {
		return prompt
	}
	return prompt + ", " + injection
}
