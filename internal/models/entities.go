package models

// Professional is a security professional listing record.
type Professional struct {
	ID              string   `json:"id"`
	FullName        string   `json:"fullName"`
	JobTitle        string   `json:"jobTitle,omitempty"`
	Role            string   `json:"role,omitempty"`
	SubRole         string   `json:"subRole,omitempty"`
	Location        string   `json:"location,omitempty"`
	Postcode        string   `json:"postcode,omitempty"`
	HourlyRate      float64  `json:"hourlyRate,omitempty"`
	ExperienceYears int      `json:"experienceYears,omitempty"`
	Licences        []string `json:"licences,omitempty"`
	AvatarURL       string   `json:"avatarUrl,omitempty"`
	Verified        bool     `json:"verified"`
}

// Company is a security company listing record.
type Company struct {
	ID           string   `json:"id"`
	CompanyName  string   `json:"companyName"`
	ServiceType  string   `json:"serviceType,omitempty"`
	Services     []string `json:"services,omitempty"`
	Location     string   `json:"location,omitempty"`
	Postcode     string   `json:"postcode,omitempty"`
	YearsTrading int      `json:"yearsTrading,omitempty"`
	LogoURL      string   `json:"logoUrl,omitempty"`
	Verified     bool     `json:"verified"`
}

// CourseProvider is a training provider listing record.
type CourseProvider struct {
	ID             string   `json:"id"`
	ProviderName   string   `json:"providerName"`
	CourseCategory string   `json:"courseCategory,omitempty"`
	Courses        []string `json:"courses,omitempty"`
	DeliveryMode   string   `json:"deliveryMode,omitempty"`
	Location       string   `json:"location,omitempty"`
	Postcode       string   `json:"postcode,omitempty"`
	Accredited     bool     `json:"accredited"`
}
