package model

// ArtFormSpecializations 艺术门类与专长方向的配对参照表
// 创建/更新班次时校验二者匹配；与前端下拉选项保持一致
var ArtFormSpecializations = map[string][]string{
	"Painting":    {"Oil Painting", "Watercolor", "Acrylic", "Mural Art", "Miniature Painting"},
	"Sculpture":   {"Clay Modelling", "Stone Carving", "Wood Carving", "Metal Sculpture"},
	"Music":       {"Classical Vocal", "Instrumental", "Western Vocal", "Music Production"},
	"Dance":       {"Bharatanatyam", "Kathak", "Contemporary", "Folk Dance", "Hip Hop"},
	"Theatre":     {"Acting", "Direction", "Stagecraft", "Puppetry"},
	"Photography": {"Portrait", "Landscape", "Wildlife", "Street Photography"},
	"Literature":  {"Poetry", "Short Story", "Playwriting", "Calligraphy"},
}

// ValidArtFormPair 校验艺术门类与专长方向是否为合法配对
func ValidArtFormPair(artForm, specialization string) bool {
	specs, ok := ArtFormSpecializations[artForm]
	if !ok {
		return false
	}
	for _, s := range specs {
		if s == specialization {
			return true
		}
	}
	return false
}
