package web

// User-facing notification strings, kept verbatim from the product copy.
const (
	msgOnlyJPEGAllowed    = "Only JPG/JPEG images are allowed."
	msgUploadAndLogin     = "Please upload an image and login first."
	msgPatientNameNeeded  = "Please enter the patient's name."
	msgAnalyzeSucceeded   = "Image analyzed successfully!"
	msgLoginToViewImages  = "Please log in to view the images."
	msgNoResults          = "No results found! Please analyze an image first."
	msgSelectUserType     = "Please select your user type!"
	msgFillAllFields      = "Please fill in all fields!"
	msgRegistrationFailed = "Registration failed. Please try again."
	msgProfileSaveFailed  = "Failed to save user information. Please try again."
	msgSocialSignUpFailed = "Social sign-up failed. Please try again."
	msgSocialLoginFailed  = "Social login failed. Please try again."
	msgSocialLoginOK      = "Social login successful!"
	msgSignInOK           = "Sign In successful!"
	msgLoginFailed        = "Login failed. Please try again."
)
