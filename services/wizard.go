package services

import (
	"net/mail"
	"strconv"
	"strings"
	"time"

	"hotel-booking/models"
	"hotel-booking/utils"
)

type WizardStep string

const (
	StepGuestInfo      WizardStep = "guest_info"
	StepCompanions     WizardStep = "companions"
	StepPaymentOption  WizardStep = "payment_option"
	StepPaymentDetails WizardStep = "payment_details"
	StepReview         WizardStep = "review"
	StepSubmitted      WizardStep = "submitted"
)

// WizardSteps is the fixed order of the guest wizard.
var WizardSteps = []WizardStep{
	StepGuestInfo,
	StepCompanions,
	StepPaymentOption,
	StepPaymentDetails,
	StepReview,
	StepSubmitted,
}

func stepIndex(s WizardStep) int {
	for i, v := range WizardSteps {
		if v == s {
			return i
		}
	}
	return -1
}

type FileSlot string

const (
	SlotIDFront      FileSlot = "id_front"
	SlotIDBack       FileSlot = "id_back"
	SlotPaymentProof FileSlot = "payment_proof"
)

func ParseFileSlot(s string) (FileSlot, error) {
	switch FileSlot(s) {
	case SlotIDFront, SlotIDBack, SlotPaymentProof:
		return FileSlot(s), nil
	default:
		return "", ErrUnknownFileSlot
	}
}

// FileState is one upload slot. Error is set when the last file put in the slot was rejected.
type FileState struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
	URL         string `json:"url,omitempty"`
	Uploaded    bool   `json:"uploaded"`
	Error       string `json:"error,omitempty"`
}

// Usable means stored and error free.
func (f *FileState) Usable() bool {
	return f != nil && f.Uploaded && f.Error == "" && f.URL != ""
}

type GuestInfo struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Notes          string `json:"notes"`
	DocumentOption string `json:"documentOption"`
}

// WizardDraft is the guest's in-progress answers for one link.
type WizardDraft struct {
	LinkID        string                  `json:"linkId"`
	Step          WizardStep              `json:"step"`
	GuestInfo     GuestInfo               `json:"guestInfo"`
	Companions    []models.Companion      `json:"companions"`
	PaymentOption string                  `json:"paymentOption"`
	Files         map[FileSlot]*FileState `json:"files"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

func NewWizardDraft(linkID string) *WizardDraft {
	return &WizardDraft{
		LinkID: linkID,
		Step:   StepGuestInfo,
		GuestInfo: GuestInfo{
			DocumentOption: models.DocumentOptionUpload,
		},
		Companions:    []models.Companion{},
		PaymentOption: models.PaymentOptionFull,
		Files:         map[FileSlot]*FileState{},
	}
}

// StepInput carries the fields the guest edited on the current step. Nil members are left unchanged.
type StepInput struct {
	GuestInfo     *GuestInfo          `json:"guestInfo,omitempty"`
	Companions    *[]models.Companion `json:"companions,omitempty"`
	PaymentOption *string             `json:"paymentOption,omitempty"`
}

func (d *WizardDraft) merge(in StepInput) {
	if in.GuestInfo != nil {
		g := *in.GuestInfo
		g.FirstName = strings.TrimSpace(g.FirstName)
		g.LastName = strings.TrimSpace(g.LastName)
		g.Email = strings.TrimSpace(g.Email)
		g.Phone = strings.TrimSpace(g.Phone)
		g.Notes = strings.TrimSpace(g.Notes)
		g.DocumentOption = strings.TrimSpace(g.DocumentOption)
		if g.DocumentOption == "" {
			g.DocumentOption = models.DocumentOptionUpload
		}
		d.GuestInfo = g
	}
	if in.Companions != nil {
		list := make([]models.Companion, 0, len(*in.Companions))
		for _, c := range *in.Companions {
			list = append(list, models.Companion{
				FirstName:   strings.TrimSpace(c.FirstName),
				LastName:    strings.TrimSpace(c.LastName),
				DateOfBirth: strings.TrimSpace(c.DateOfBirth),
			})
		}
		d.Companions = list
	}
	if in.PaymentOption != nil {
		opt := strings.TrimSpace(*in.PaymentOption)
		if opt == "" {
			opt = models.PaymentOptionFull
		}
		d.PaymentOption = opt
	}
}

// Next merges in, validates the current step and advances one step.
// Review only moves forward through Submit.
func (d *WizardDraft) Next(in StepInput, capacity int) error {
	switch d.Step {
	case StepReview, StepSubmitted:
		return ErrWizardStep
	}
	d.merge(in)
	if err := d.validateStep(d.Step, capacity); err != nil {
		return err
	}
	d.Step = WizardSteps[stepIndex(d.Step)+1]
	return nil
}

// Back re-displays the previous step without validating.
func (d *WizardDraft) Back() error {
	i := stepIndex(d.Step)
	if i <= 0 || d.Step == StepSubmitted {
		return ErrWizardStep
	}
	d.Step = WizardSteps[i-1]
	return nil
}

// ValidateAll re-checks every step before the final commit.
func (d *WizardDraft) ValidateAll(capacity int) error {
	for _, s := range []WizardStep{StepGuestInfo, StepCompanions, StepPaymentOption, StepPaymentDetails} {
		if err := d.validateStep(s, capacity); err != nil {
			return err
		}
	}
	return nil
}

func (d *WizardDraft) validateStep(step WizardStep, capacity int) error {
	v := newValidationError()

	switch step {
	case StepGuestInfo:
		g := d.GuestInfo
		if g.FirstName == "" {
			v.add("firstName", "First name is required")
		}
		if g.LastName == "" {
			v.add("lastName", "Last name is required")
		}
		if g.Email == "" {
			v.add("email", "Email is required")
		} else if _, err := mail.ParseAddress(g.Email); err != nil {
			v.add("email", "Email is invalid")
		}
		if g.Phone == "" {
			v.add("phone", "Phone is required")
		}
		switch g.DocumentOption {
		case models.DocumentOptionUpload:
			checkFile(v, d.Files[SlotIDFront], string(SlotIDFront), "Front side of the ID is required")
			checkFile(v, d.Files[SlotIDBack], string(SlotIDBack), "Back side of the ID is required")
		case models.DocumentOptionOnSite:
		default:
			v.add("documentOption", "Document option must be upload or on_site")
		}

	case StepCompanions:
		if len(d.Companions) != capacity {
			v.add("companions", companionCountMessage(capacity))
		}
		for i, c := range d.Companions {
			prefix := "companions." + strconv.Itoa(i) + "."
			if c.FirstName == "" {
				v.add(prefix+"firstName", "First name is required")
			}
			if c.LastName == "" {
				v.add(prefix+"lastName", "Last name is required")
			}
			if c.DateOfBirth == "" {
				v.add(prefix+"dateOfBirth", "Date of birth is required")
			} else if _, err := time.Parse("2006-01-02", c.DateOfBirth); err != nil {
				v.add(prefix+"dateOfBirth", "Date of birth must be YYYY-MM-DD")
			}
		}

	case StepPaymentOption:
		switch d.PaymentOption {
		case models.PaymentOptionFull, models.PaymentOptionDeposit:
		default:
			v.add("paymentOption", "Payment option must be full or deposit")
		}

	case StepPaymentDetails:
		checkFile(v, d.Files[SlotPaymentProof], string(SlotPaymentProof), "Proof of payment is required")
	}

	return v.orNil()
}

func checkFile(v *ValidationError, f *FileState, field, missing string) {
	switch {
	case f == nil || (!f.Uploaded && f.Error == ""):
		v.add(field, missing)
	case f.Error != "":
		v.add(field, f.Error)
	case !f.Usable():
		v.add(field, missing)
	}
}

func companionCountMessage(capacity int) string {
	switch capacity {
	case 0:
		return "No companions are expected for this booking"
	case 1:
		return "Exactly 1 companion is required"
	default:
		return "Exactly " + strconv.Itoa(capacity) + " companions are required"
	}
}

// Amounts is what the guest pays now and what remains at arrival.
type Amounts struct {
	Total     float64 `json:"total"`
	Due       float64 `json:"due"`
	Remaining float64 `json:"remaining"`
}

func ComputeAmounts(total float64, option string) Amounts {
	total = utils.Round2(total)
	if option == models.PaymentOptionDeposit {
		due, remaining := utils.SplitDeposit(total)
		return Amounts{Total: total, Due: due, Remaining: remaining}
	}
	return Amounts{Total: total, Due: total, Remaining: 0}
}

// StatusAfterSubmit maps the payment choice to the booking status written on commit.
func StatusAfterSubmit(option string) string {
	if option == models.PaymentOptionDeposit {
		return models.BookingStatusPartialPayment
	}
	return models.BookingStatusConfirmed
}
