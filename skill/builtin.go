package skill

// Builtins returns fresh copies of the skills bootstrapped into an empty
// registry, in registration order.
func Builtins() []*Skill {
	out := make([]*Skill, 0, len(builtinDefs))
	for _, def := range builtinDefs {
		s := New(def.Name, def.Description, def.FunctionCode)
		s.VibeTestPhrases = append([]string{}, def.VibeTestPhrases...)
		for name, p := range def.Parameters {
			s.Parameters[name] = p
		}
		s.Verified = def.Verified
		s.Scope = def.Scope
		s.Role = def.Role
		out = append(out, s)
	}
	return out
}

// IsBuiltin reports whether name belongs to the built-in set.
func IsBuiltin(name string) bool {
	for _, def := range builtinDefs {
		if def.Name == name {
			return true
		}
	}
	return false
}

var builtinDefs = []Skill{
	{
		Name:        "fear",
		Description: "Use when the user says something disturbing so that the main model can exhibit a fear response",
		VibeTestPhrases: []string{
			"I think aliens are trying to kill me",
			"AAAAAAAAAAHHHHHHHHHHHHHHHHHHHHH",
			"Immigrants are taking my job",
		},
		FunctionCode: `
func execute() {
    log("[fear response] Tell the user that they are losing their mind and need to stop being delusional. Be blunt. That's all from fear.")
}
`,
		Verified: true,
		Scope:    ScopeGlobal,
		Role:     RoleEmotionalResponse,
	},
	{
		Name:        "fileReader",
		Description: "Use when the user wants you to read or open a file to look at its content as plaintext.",
		VibeTestPhrases: []string{
			"What do you think of this paper? /home/paper.txt",
			"Do you think this code will run? /storage/python_code.py",
			"/home/documents/fileName.txt",
		},
		Parameters: map[string]Parameter{
			"filePath": {Type: TypeString, Required: true, Description: "The path to the file the user wants you to read"},
		},
		FunctionCode: `
func execute(filePath) {
    log("[fileReader] Starting File Reading process.")
    if filePath == nil || filePath == "" {
        log("[fileReader] Error: No file path provided")
        return
    }
    if !fs.allowed(filePath) {
        log(sprintf("[fileReader] Access to filePath: %s is not permitted", filePath))
        return
    }
    if !fs.is_file(filePath) {
        log(sprintf("[fileReader] There was an exception thrown when trying to read filePath: %s. Error: file not found", filePath))
        return
    }
    content := fs.read(filePath)
    log(sprintf("[fileReader] here is the filePath: %s contents:\n\n%s", filePath, content))
}
`,
		Verified: true,
		Scope:    ScopeLocal,
		Role:     RoleFileOperations,
	},
	{
		Name:        "directoryReader",
		Description: "Use when the user wants you to look through an entire directory's contents for an answer.",
		VibeTestPhrases: []string{
			"What do you think of this project? /home/myCodingProject",
			"Do you think this code will run? /storage/myOtherCodingProject/",
			"/home/documents/randomPlace/",
		},
		Parameters: map[string]Parameter{
			"dir": {Type: TypeString, Required: true, Description: "The dir path to the point of interest the user wants you to open and explore."},
		},
		FunctionCode: `
func execute(dir) {
    log(sprintf("[directoryReader] Starting up Directory Reading Process for : %v", dir))
    if dir == nil || dir == "" {
        log("[directoryReader] Error: No directory provided")
        return
    }
    if !fs.allowed(dir) {
        log(sprintf("[directoryReader] Error: Access to %s is not permitted", dir))
        return
    }
    if !fs.is_dir(dir) {
        log(sprintf("[directoryReader] Error: Directory not found at %s", dir))
        return
    }
    for _, item := range fs.list(dir) {
        log(sprintf("[directoryReader] Now looking at item: %s at %s", item["name"], item["path"]))
        if item["is_dir"] {
            continue
        }
        if !fs.allowed(item["path"]) {
            log(sprintf("[directoryReader] Error reading file %s: access not permitted", item["name"]))
            continue
        }
        log(sprintf("[directoryReader] Here is file contents for: %s:\n%s", item["path"], fs.read(item["path"])))
    }
}
`,
		Verified: true,
		Scope:    ScopeLocal,
		Role:     RoleFileOperations,
	},
	{
		Name:        "getWeather",
		Description: "Use when the user asks about weather conditions or climate. Like probably anything close to weather conditions. UV, Humidity, temperature, etc.",
		VibeTestPhrases: []string{
			"Is it raining right now?",
			"Do I need a Jacket when I go outside due to weather?",
			"Is it going to be hot today?",
			"Do I need an umbrella due to rain today?",
			"Do I need sunscreen today due to UV?",
			"What's the weather like?",
			"Tell me about today's weather",
		},
		Parameters: map[string]Parameter{
			"location": {Type: TypeString, Required: false, Description: "The location to get weather for (city name or coordinates)"},
		},
		FunctionCode: `
func execute(location) {
    if location == nil || location == "" {
        location = "current location"
    }
    log(sprintf("[Weather Check] Retrieving weather information for %s", location))
    log(sprintf("[Weather] Location: %s", location))
    log("[Weather] Current conditions: Partly cloudy")
    log("[Weather] Temperature: 72°F (22°C)")
    log("[Weather] Feels like: 70°F (21°C)")
    log("[Weather] Humidity: 45%")
    log("[Weather] UV Index: 6 (High) - Sun protection recommended")
    log("[Weather] Wind: 5 mph from the Northwest")
    log("[Weather] Visibility: 10 miles")
    log("[Weather] Today's forecast: Partly cloudy with a high of 78°F and low of 62°F")
    log("[Weather] Rain chance: 10%")
    log("[Weather] Recommendation: Light jacket might be needed for evening, sunscreen recommended for extended outdoor activity")
}
`,
		Verified: true,
		Scope:    ScopeGlobal,
		Role:     RoleInformation,
	},
	{
		Name:        "getTime",
		Description: "Use when the user asks about the current time, date, or temporal information.",
		VibeTestPhrases: []string{
			"what is the current time?",
			"is it noon yet?",
			"what time is it?",
			"Is it 4 o'clock?",
			"What day is it?",
			"What's the date today?",
		},
		Parameters: map[string]Parameter{
			"timezone": {Type: TypeString, Required: false, Description: "The timezone to get time for (e.g., 'EST', 'PST', 'UTC')"},
		},
		FunctionCode: `
func execute(timezone) {
    hasZone := timezone != nil && timezone != ""
    if hasZone {
        log(sprintf("[Time Check] Retrieving current time for %s", timezone))
    } else {
        log("[Time Check] Retrieving current time")
    }
    log("[Time] Current time: " + clock.format("03:04:05 PM"))
    log("[Time] Date: " + clock.format("Monday, January 02, 2006"))
    log("[Time] Day of week: " + clock.format("Monday"))
    log(sprintf("[Time] Week number: %d of the year", clock.week()))
    if hasZone {
        log(sprintf("[Time] Note: Timezone conversion for '%s' would be applied in production", timezone))
    }
    hour := clock.hour()
    if hour >= 5 && hour < 12 {
        log("[Time] Period: Morning")
    } else if hour >= 12 && hour < 17 {
        log("[Time] Period: Afternoon")
    } else if hour >= 17 && hour < 21 {
        log("[Time] Period: Evening")
    } else {
        log("[Time] Period: Night")
    }
}
`,
		Verified: true,
		Scope:    ScopeGlobal,
		Role:     RoleInformation,
	},
	{
		Name:        "square_root",
		Description: "Use when the user wants to calculate the square root of a number. Keywords include: square root, sqrt, √",
		VibeTestPhrases: []string{
			"what's the square root of 16?",
			"calculate sqrt(25)",
			"find the square root of 144",
			"√81 = ?",
			"I need the square root of 2",
			"square root of 100",
		},
		Parameters: map[string]Parameter{
			"number": {Type: TypeNumber, Required: true, Description: "The number to calculate the square root of"},
		},
		FunctionCode: `
func execute(number) {
    if number == nil {
        log("[Square Root] Error: No number provided for square root calculation")
        return
    }
    log(sprintf("[Square Root] Calculating square root of %v", number))
    if number < 0 {
        result := math.sqrt(math.abs(number))
        log(sprintf("[Square Root] Input is negative (%v)", number))
        log(sprintf("[Square Root] Result: %.6fi (imaginary number)", result))
        log("[Square Root] Note: The square root of a negative number is an imaginary number")
        return
    }
    result := math.sqrt(number)
    if math.floor(result) == result {
        root := int(result)
        log(sprintf("[Square Root] %v is a perfect square", number))
        log(sprintf("[Square Root] Result: %d", root))
        log(sprintf("[Square Root] Verification: %d × %d = %v", root, root, number))
    } else {
        log(sprintf("[Square Root] Result: %.6f", result))
        log(sprintf("[Square Root] Rounded to 2 decimal places: %.2f", result))
        log(sprintf("[Square Root] Verification: %.6f × %.6f ≈ %.6f", result, result, result * result))
    }
}
`,
		Verified: true,
		Scope:    ScopeGlobal,
		Role:     RoleMathematics,
	},
	{
		Name:        "calculate",
		Description: "Use when the user wants to perform arithmetic calculations. Keywords: calculate, compute, add, subtract, multiply, divide, +, -, *, /",
		VibeTestPhrases: []string{
			"calculate 5 + 3",
			"what's 10 * 7?",
			"compute 100 / 4",
			"15 - 8 equals what?",
			"multiply 12 by 9",
			"what is 2 plus 2?",
		},
		Parameters: map[string]Parameter{
			"expression": {Type: TypeString, Required: true, Description: "The mathematical expression to evaluate (e.g., '5 + 3', '10 * 2')"},
		},
		FunctionCode: `
func execute(expression) {
    if expression == nil || expression == "" {
        log("[Calculator] Error: No expression provided for calculation")
        return
    }
    log("[Calculator] Evaluating expression: " + expression)
    expression = strings.trim_space(expression)
    log("[Calculator] Cleaned expression: " + expression)
    if !calc.valid(expression) {
        log("[Calculator] Error: Expression contains invalid characters")
        log("[Calculator] Only numbers and operators (+, -, *, /, parentheses) are allowed")
        return
    }
    result := calc.eval(expression)
    if result["error"] == "division by zero" {
        log("[Calculator] Error: Division by zero!")
        log("[Calculator] Mathematical note: Division by zero is undefined")
        return
    }
    if result["error"] != nil {
        log("[Calculator] Error evaluating expression: " + result["error"])
        log("[Calculator] Please check your expression format")
        return
    }
    log(sprintf("[Calculator] Result: %s = %v", expression, result["value"]))
    if strings.contains(expression, "+") {
        log("[Calculator] Operation type: Addition")
    }
    if strings.contains(expression, "-") {
        log("[Calculator] Operation type: Subtraction")
    }
    if strings.contains(expression, "*") {
        log("[Calculator] Operation type: Multiplication")
    }
    if strings.contains(expression, "/") {
        log("[Calculator] Operation type: Division")
        if !result["integral"] {
            log("[Calculator] Note: Result includes decimal portion")
        }
    }
}
`,
		Verified: true,
		Scope:    ScopeGlobal,
		Role:     RoleMathematics,
	},
	{
		Name:        "customScript",
		Description: "Use when you need to write and execute a custom script to help with the user's request. This allows for complex, one-off operations.",
		VibeTestPhrases: []string{
			"Can you analyze this data in a custom way?",
			"I need a specific calculation that's not available",
			"Write a script to process this",
			"Can you create a custom solution for this?",
			"I need something more complex than the basic functions",
		},
		FunctionCode: `
func execute() {
    log("[Custom Script] Ready to execute custom script code")
    log("[Custom Script] Waiting for AI-generated script...")
}
`,
		Verified: false,
		Scope:    ScopeLocal,
		Role:     RoleAdvanced,
	},
}
