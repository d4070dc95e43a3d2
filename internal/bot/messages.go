package bot

// Тексты сообщений бота. Пользователи бота — арабоязычные школьники,
// поэтому все тексты на арабском.

const msgWelcome = `أهلاً بك في بوت اختبارات الكيمياء! 🧪

للبدء لا بد من إكمال التسجيل أولاً.`

const msgMainMenu = `القائمة الرئيسية — اختر ما تريد:`

const msgNotRegistered = `يجب إكمال التسجيل أولاً قبل استخدام هذه الميزة. أرسل /start للتسجيل.`

const msgAskName = `ما اسمك الكامل؟ (مثال: أحمد محمد العلي)`

const msgBadName = `الاسم غير صالح. أدخل اسمك الكامل من كلمتين إلى أربع كلمات، حروف فقط.`

const msgAskEmail = `ما بريدك الإلكتروني؟`

const msgBadEmail = `البريد الإلكتروني غير صالح، حاول مرة أخرى. (مثال: name@example.com)`

const msgAskPhone = `ما رقم جوالك؟ (مثال: 05xxxxxxxx)`

const msgBadPhone = `رقم الجوال غير صالح، حاول مرة أخرى.`

const msgAskGrade = `اختر صفك الدراسي:`

const msgConfirmRegistration = `تأكد من معلوماتك:`

const msgRegistered = `تم تسجيلك بنجاح! 🎉 يمكنك الآن بدء الاختبارات.`

const msgEditWhich = `أي معلومة تريد تعديلها؟`

const msgQuizTypeMenu = `اختر نوع الاختبار:`

const msgQuizScopeCourse = `اختر المقرر:`

const msgQuizScopeUnit = `اختر الوحدة:`

const msgAskQuestionCount = `كم عدد الأسئلة؟ (من 1 إلى 50)`

const msgBadQuestionCount = `عدد الأسئلة غير صالح، أدخل رقماً من 1 إلى 50.`

const msgNoQuestions = `لا توجد أسئلة متاحة لهذا الاختيار حالياً.`

const msgTryAgainLater = `حدث خطأ، يرجى المحاولة مرة أخرى لاحقاً. 😔`

const msgQuizSaved = `تم حفظ الاختبار، يمكنك استكماله لاحقاً من القائمة الرئيسية. 💾`

const msgNoSavedQuizzes = `لا توجد اختبارات محفوظة.`

const msgStaleButton = `هذا الزر لم يعد صالحاً.`

const msgQuizInProgress = `لديك اختبار جارٍ. استخدم أزرار السؤال، أو أرسل /cancel لإلغائه.`

const msgAnswerAccepted = `تمت الإجابة ✅`

const msgTimeUp = `انتهى الوقت! ⏰`

const msgQuestionSkipped = `تم تخطي السؤال ⏭️`

const msgQuizEnded = `تم إنهاء الاختبار.`

const msgAdminOnly = `هذه الميزة للمشرفين فقط.`

const msgAdminMenu = `لوحة المشرف — اختر:`

const msgBroadcastAsk = `أرسل نص الرسالة الجماعية:`

const msgBroadcastDone = `تم إرسال الرسالة الجماعية.`

const msgBlockAsk = `أرسل معرف المستخدم (ID) لحظره أو فك حظره:`

const msgBadUserID = `معرف المستخدم غير صالح، أرسل رقماً.`

const msgUserNotFound = `لا يوجد مستخدم بهذا المعرف.`

const msgCannotBlockSelf = `لا يمكنك حظر نفسك.`

const msgReportRunning = `جارٍ إنشاء التقرير الأسبوعي...`

const msgNoStatsYet = `لم تُكمل أي اختبار بعد. ابدأ أول اختبار الآن!`
